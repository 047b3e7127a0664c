package node

// Identity holds the name assigned to a node at handshake time and the
// counter used to mint outgoing message identifiers. Behaviors embed it to
// satisfy SetIdentity and NextMsgID.
//
// The counter starts at 0, meaning no message was sent yet, so the first
// msg_id produced by a node is 1.
type Identity struct {
	nodeID  string
	nodeIDs []string
	msgID   uint64
}

// SetIdentity records the node's own id and the ids of every participant.
func (i *Identity) SetIdentity(nodeID string, nodeIDs []string) {
	i.nodeID = nodeID
	i.nodeIDs = append([]string(nil), nodeIDs...)
}

// NodeID returns the identity assigned at handshake, or "" before it.
func (i *Identity) NodeID() string {
	return i.nodeID
}

// NodeIDs returns the participants announced at handshake.
func (i *Identity) NodeIDs() []string {
	return append([]string(nil), i.nodeIDs...)
}

// NextMsgID advances the counter and returns its new value.
func (i *Identity) NextMsgID() uint64 {
	i.msgID++
	return i.msgID
}

// MsgID returns the last value produced by NextMsgID.
func (i *Identity) MsgID() uint64 {
	return i.msgID
}
