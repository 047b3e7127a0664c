// Package echo implements the simplest kind of testbed node: it sends every
// echo request back to its sender.
package echo

import (
	"github.com/mosaicnetworks/maelnode/src/message"
	"github.com/mosaicnetworks/maelnode/src/node"
	"github.com/sirupsen/logrus"
)

const (
	// TypeEcho ...
	TypeEcho = "echo"
	// TypeEchoOk ...
	TypeEchoOk = "echo_ok"
)

// Echo asks the node to send back an arbitrary string.
type Echo struct {
	Echo string `json:"echo"`
}

// Type implements message.Payload.
func (Echo) Type() string { return TypeEcho }

// EchoOk carries the string of the Echo it answers.
type EchoOk struct {
	Echo string `json:"echo"`
}

// Type implements message.Payload.
func (EchoOk) Type() string { return TypeEchoOk }

// Vocabulary lists the payloads understood by an echo node.
var Vocabulary = message.NewVocabulary(Echo{}, EchoOk{})

// Node is the echo Behavior.
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

// Process implements node.Behavior. Echo requests are answered with the same
// string, echo_ok messages are ignored.
func (n *Node) Process(in message.Envelope, out node.Sink) error {
	switch p := in.Body.Payload.(type) {
	case Echo:
		return node.Reply(n, EchoOk{Echo: p.Echo}, in, out)
	case EchoOk:
		n.logger.WithField("from", in.Src).Debug("Ignoring echo_ok")
	}
	return nil
}
