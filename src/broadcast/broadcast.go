// Package broadcast implements a node storing the messages broadcast to it
// along with the topology of the cluster.
//
// The node is a local store: messages are kept in arrival order and returned
// on read, the topology is stored as supplied. Messages are not forwarded to
// neighbors.
package broadcast

import (
	"github.com/mosaicnetworks/maelnode/src/message"
	"github.com/mosaicnetworks/maelnode/src/node"
	"github.com/sirupsen/logrus"
)

const (
	// TypeBroadcast ...
	TypeBroadcast = "broadcast"
	// TypeBroadcastOk ...
	TypeBroadcastOk = "broadcast_ok"
	// TypeTopology ...
	TypeTopology = "topology"
	// TypeTopologyOk ...
	TypeTopologyOk = "topology_ok"
	// TypeRead ...
	TypeRead = "read"
	// TypeReadOk ...
	TypeReadOk = "read_ok"
)

// Broadcast delivers a message to the node.
type Broadcast struct {
	Message uint64 `json:"message"`
}

// Type implements message.Payload.
func (Broadcast) Type() string { return TypeBroadcast }

// BroadcastOk ...
type BroadcastOk struct{}

// Type implements message.Payload.
func (BroadcastOk) Type() string { return TypeBroadcastOk }

// Topology maps every node id to the ids of its neighbors.
type Topology struct {
	Topology map[string][]string `json:"topology"`
}

// Type implements message.Payload.
func (Topology) Type() string { return TypeTopology }

// TopologyOk ...
type TopologyOk struct{}

// Type implements message.Payload.
func (TopologyOk) Type() string { return TypeTopologyOk }

// Read asks for every message received so far.
type Read struct{}

// Type implements message.Payload.
func (Read) Type() string { return TypeRead }

// ReadOk lists the messages received so far, in arrival order.
type ReadOk struct {
	Messages []uint64 `json:"messages"`
}

// Type implements message.Payload.
func (ReadOk) Type() string { return TypeReadOk }

// Vocabulary lists the payloads understood by a broadcast node.
var Vocabulary = message.NewVocabulary(
	Broadcast{}, BroadcastOk{},
	Topology{}, TopologyOk{},
	Read{}, ReadOk{},
)

// Node is the broadcast Behavior.
type Node struct {
	node.Identity

	messages []uint64
	topology map[string][]string

	logger *logrus.Entry
}

// NewNode returns a Node with no messages and an empty topology.
func NewNode(logger *logrus.Entry) *Node {
	return &Node{
		messages: []uint64{},
		topology: make(map[string][]string),
		logger:   logger,
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
	switch p := in.Body.Payload.(type) {
	case Broadcast:
		n.messages = append(n.messages, p.Message)

		n.logger.WithFields(logrus.Fields{
			"message": p.Message,
			"count":   len(n.messages),
		}).Debug("Broadcast")

		return node.Reply(n, BroadcastOk{}, in, out)
	case Topology:
		n.topology = copyTopology(p.Topology)

		n.logger.WithField("neighbors", n.topology[n.NodeID()]).Debug("Topology")

		return node.Reply(n, TopologyOk{}, in, out)
	case Read:
		return node.Reply(n, ReadOk{Messages: n.Messages()}, in, out)
	case BroadcastOk, TopologyOk, ReadOk:
		n.logger.WithFields(logrus.Fields{
			"from": in.Src,
			"type": in.Body.Type(),
		}).Debug("Ignoring reply")
	}
	return nil
}

// Messages returns a copy of the messages received so far, in arrival order.
func (n *Node) Messages() []uint64 {
	return append([]uint64{}, n.messages...)
}

// Topology returns a copy of the last topology received.
func (n *Node) Topology() map[string][]string {
	return copyTopology(n.topology)
}

// Neighbors returns the neighbors of this node in the last topology received.
func (n *Node) Neighbors() []string {
	return append([]string{}, n.topology[n.NodeID()]...)
}

func copyTopology(t map[string][]string) map[string][]string {
	res := make(map[string][]string, len(t))
	for k, v := range t {
		res[k] = append([]string{}, v...)
	}
	return res
}
