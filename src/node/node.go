package node

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/maelnode/src/journal"
	"github.com/mosaicnetworks/maelnode/src/message"
	"github.com/mosaicnetworks/maelnode/src/telemetry"
	"github.com/sirupsen/logrus"
)

const bufSize = 64 * 1024

// Node drives a Behavior through the lifecycle of a testbed node: one
// handshake, then a sequential loop over the input stream until it ends.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	behavior Behavior

	// nodeID and the counters are read by GetStats from other goroutines.
	nodeID    atomic.Value
	received  uint64
	sent      uint64
	lastMsgID uint64

	start time.Time
}

// NewNode is a factory method that returns a Node in the AwaitingInit state
func NewNode(conf *Config, behavior Behavior) *Node {
	node := &Node{
		conf:     conf,
		logger:   conf.Logger.WithField("run_id", conf.RunID),
		behavior: behavior,
		start:    time.Now(),
	}
	node.nodeID.Store("")

	return node
}

// Run performs the handshake on in, then dispatches every following envelope
// to the Behavior. Replies are written to out. Run returns nil when in ends
// cleanly and a *StageError on any failure. Either way the node ends in the
// Shutdown state.
func (n *Node) Run(in io.Reader, out io.Writer) error {
	defer n.setState(Shutdown)

	r := bufio.NewReaderSize(in, bufSize)
	sink := n.newOutput(out)

	if err := n.handshake(r, sink); err != nil {
		return err
	}

	return n.loop(r, sink)
}

// handshake consumes exactly one line, which must be an init message, and
// acknowledges it.
func (n *Node) handshake(r *bufio.Reader, out Sink) error {
	line, err := r.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return stageErr(StageHandshake, err)
	}
	if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
		telemetry.Handshakes.WithLabelValues("missing").Inc()
		return stageErr(StageHandshake, ErrMissingInit)
	}

	n.record(journal.Inbound, line)

	env, err := message.DecodeEnvelope(line, message.InitVocabulary)
	if err != nil {
		telemetry.Handshakes.WithLabelValues("malformed").Inc()
		return stageErr(StageHandshake, err)
	}

	n.countReceived(env)

	switch p := env.Body.Payload.(type) {
	case message.Init:
		n.behavior.SetIdentity(p.NodeID, p.NodeIDs)
		n.nodeID.Store(p.NodeID)
		n.logger = n.logger.WithField("node_id", p.NodeID)
		n.setState(Ready)

		telemetry.Handshakes.WithLabelValues("ok").Inc()

		n.logger.WithFields(logrus.Fields{
			"from":     env.Src,
			"node_ids": p.NodeIDs,
		}).Debug("Init")

		return Reply(n.behavior, message.InitOk{}, env, out)
	case message.InitOk:
		telemetry.Handshakes.WithLabelValues("init_ok").Inc()
		return stageErr(StageHandshake, ErrInitOkBeforeInit)
	default:
		return stageErr(StageHandshake, fmt.Errorf("unexpected payload %T", p))
	}
}

// loop decodes the rest of the input as a stream of envelopes of the
// Behavior's Vocabulary.
func (n *Node) loop(r io.Reader, out Sink) error {
	dec := message.NewDecoder(r, n.behavior.Vocabulary())

	for {
		env, err := dec.Next()
		if raw := dec.Raw(); raw != nil {
			n.record(journal.Inbound, raw)
		}
		if err == io.EOF {
			n.logger.Debug("End of input")
			return nil
		}
		if err != nil {
			return stageErr(StageDecode, err)
		}

		n.countReceived(env)

		if err := n.behavior.Process(env, out); err != nil {
			return stageErr(StageDispatch, err)
		}
	}
}

func (n *Node) countReceived(env message.Envelope) {
	atomic.AddUint64(&n.received, 1)
	telemetry.MessagesReceived.WithLabelValues(env.Body.Type()).Inc()

	if n.logger.Logger.Level >= logrus.DebugLevel {
		n.logger.WithFields(logrus.Fields{
			"from":   env.Src,
			"type":   env.Body.Type(),
			"msg_id": optID(env.Body.MsgID),
		}).Debug("Received")
	}
}

func (n *Node) countSent(env message.Envelope) {
	atomic.AddUint64(&n.sent, 1)
	if env.Body.MsgID != nil {
		atomic.StoreUint64(&n.lastMsgID, *env.Body.MsgID)
	}
	telemetry.MessagesSent.WithLabelValues(env.Body.Type()).Inc()

	if n.logger.Logger.Level >= logrus.DebugLevel {
		n.logger.WithFields(logrus.Fields{
			"to":          env.Dest,
			"type":        env.Body.Type(),
			"msg_id":      optID(env.Body.MsgID),
			"in_reply_to": optID(env.Body.InReplyTo),
		}).Debug("Sent")
	}
}

func (n *Node) record(dir journal.Direction, line []byte) {
	if n.conf.Journal == nil {
		return
	}
	if err := n.conf.Journal.Append(dir, line); err != nil {
		n.logger.WithError(err).Warn("Journal append failed")
	}
}

// GetState returns the current state of the node.
func (n *Node) GetState() State {
	return n.getState()
}

// NodeID returns the identity assigned by the handshake, or "" before it.
func (n *Node) NodeID() string {
	return n.nodeID.Load().(string)
}

// GetStats returns information about the node. It is safe to call from any
// goroutine.
func (n *Node) GetStats() map[string]string {
	timeElapsed := time.Since(n.start)

	return map[string]string{
		"node_id":           n.NodeID(),
		"run_id":            n.conf.RunID,
		"state":             n.getState().String(),
		"messages_received": strconv.FormatUint(atomic.LoadUint64(&n.received), 10),
		"messages_sent":     strconv.FormatUint(atomic.LoadUint64(&n.sent), 10),
		"last_msg_id":       strconv.FormatUint(atomic.LoadUint64(&n.lastMsgID), 10),
		"time_elapsed":      strconv.FormatFloat(timeElapsed.Seconds(), 'f', 2, 64),
	}
}

func optID(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
