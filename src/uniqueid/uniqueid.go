// Package uniqueid implements a node generating identifiers that are unique
// across the whole cluster without any coordination.
//
// An identifier is the node id followed by the value of the node's message
// counter when the request is handled, e.g. "n3-17". The reply carrying it
// then takes the next msg_id, "n3-17" travels in msg_id 18. Node ids are
// unique in a cluster and the counter only grows, so no identifier is handed
// out twice.
package uniqueid

import (
	"fmt"

	"github.com/mosaicnetworks/maelnode/src/message"
	"github.com/mosaicnetworks/maelnode/src/node"
	"github.com/sirupsen/logrus"
)

const (
	// TypeGenerate ...
	TypeGenerate = "generate"
	// TypeGenerateOk ...
	TypeGenerateOk = "generate_ok"
)

// Generate requests a fresh identifier.
type Generate struct{}

// Type implements message.Payload.
func (Generate) Type() string { return TypeGenerate }

// GenerateOk carries a fresh identifier.
type GenerateOk struct {
	GUID string `json:"id"`
}

// Type implements message.Payload.
func (GenerateOk) Type() string { return TypeGenerateOk }

// Vocabulary lists the payloads understood by a unique-id node.
var Vocabulary = message.NewVocabulary(Generate{}, GenerateOk{})

// Node is the unique-id Behavior.
type Node struct {
	node.Identity

	logger *logrus.Entry
}

// NewNode ...
func NewNode(logger *logrus.Entry) *Node {
	return &Node{
		logger: logger,
	}
}

// SetIdentity implements node.Behavior. Log entries written after the
// handshake carry the node id.
func (n *Node) SetIdentity(nodeID string, nodeIDs []string) {
	n.Identity.SetIdentity(nodeID, nodeIDs)
	n.logger = n.logger.WithField("node_id", nodeID)
}

// Vocabulary implements node.Behavior.
func (n *Node) Vocabulary() *message.Vocabulary {
	return Vocabulary
}

// Process implements node.Behavior.
func (n *Node) Process(in message.Envelope, out node.Sink) error {
	switch in.Body.Payload.(type) {
	case Generate:
		// Read before Reply advances the counter.
		guid := fmt.Sprintf("%s-%d", n.NodeID(), n.MsgID())
		return node.Reply(n, GenerateOk{GUID: guid}, in, out)
	case GenerateOk:
		n.logger.WithField("from", in.Src).Debug("Ignoring generate_ok")
	}
	return nil
}
