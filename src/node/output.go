package node

import (
	"io"

	"github.com/mosaicnetworks/maelnode/src/journal"
	"github.com/mosaicnetworks/maelnode/src/message"
)

// output is the Sink handed to the Behavior. Lines are written straight to
// the underlying writer, unbuffered, so the harness sees every reply as soon
// as it is produced.
type output struct {
	node *Node
	enc  *message.Encoder
}

func (n *Node) newOutput(w io.Writer) *output {
	return &output{
		node: n,
		enc:  message.NewEncoder(&journalWriter{w: w, node: n}),
	}
}

// Encode implements Sink.
func (o *output) Encode(env message.Envelope) error {
	if err := o.enc.Encode(env); err != nil {
		return stageErr(StageWrite, err)
	}
	o.node.countSent(env)
	return nil
}

// journalWriter copies every successful write to the node's journal. The
// Encoder issues one Write per envelope, so each copy is a full line.
type journalWriter struct {
	w    io.Writer
	node *Node
}

func (j *journalWriter) Write(p []byte) (int, error) {
	n, err := j.w.Write(p)
	if err == nil {
		j.node.record(journal.Outbound, p)
	}
	return n, err
}
