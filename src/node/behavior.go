package node

import (
	"github.com/mosaicnetworks/maelnode/src/message"
)

// Sink receives the envelopes produced by a node. The Sink passed to a
// Behavior writes each envelope as one line on the node's output stream.
type Sink interface {
	Encode(env message.Envelope) error
}

// Behavior is the node-kind specific part of a node. The Node drives the
// handshake and the message loop, and hands every decoded application
// message to Process.
//
// Behaviors are only ever called from the goroutine running Node.Run, one
// message at a time, so their state needs no locking.
type Behavior interface {
	// Vocabulary lists the payloads accepted after the handshake.
	Vocabulary() *message.Vocabulary

	// Process reacts to one application message. Replies are written to out,
	// usually through Reply. Any returned error is fatal for the node.
	Process(in message.Envelope, out Sink) error

	// SetIdentity is called once, when the handshake succeeds.
	SetIdentity(nodeID string, nodeIDs []string)

	// NextMsgID advances the message counter and returns its new value.
	NextMsgID() uint64
}

// Reply answers in with payload p. The reply goes from in.Dest to in.Src,
// carries a fresh msg_id drawn from b and is correlated to in by in_reply_to.
// The counter of b advances exactly once per call, even if the write fails.
func Reply(b Behavior, p message.Payload, in message.Envelope, out Sink) error {
	msgID := b.NextMsgID()

	reply := message.Envelope{
		Src:  in.Dest,
		Dest: in.Src,
		Body: message.Body{
			MsgID:     &msgID,
			InReplyTo: in.Body.MsgID,
			Payload:   p,
		},
	}

	return out.Encode(reply)
}
