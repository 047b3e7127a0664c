package node

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mosaicnetworks/maelnode/src/journal"
	"github.com/mosaicnetworks/maelnode/src/message"
)

const initLine = `{"src":"c0","dest":"n1","body":{"msg_id":7,"type":"init","node_id":"n1","node_ids":["n1","n2","n3"]}}`

type say struct {
	Text string `json:"text"`
}

func (say) Type() string { return "say" }

type sayOk struct {
	Text string `json:"text"`
}

func (sayOk) Type() string { return "say_ok" }

type boom struct{}

func (boom) Type() string { return "boom" }

type twice struct{}

func (twice) Type() string { return "twice" }

var testVocabulary = message.NewVocabulary(say{}, sayOk{}, boom{}, twice{})

var errBoom = errors.New("boom")

// testBehavior answers say with say_ok, ignores say_ok, answers twice with
// two say_ok and fails on boom.
type testBehavior struct {
	Identity

	identityCalls int
	processed     []message.Envelope
}

func (b *testBehavior) Vocabulary() *message.Vocabulary {
	return testVocabulary
}

func (b *testBehavior) SetIdentity(nodeID string, nodeIDs []string) {
	b.identityCalls++
	b.Identity.SetIdentity(nodeID, nodeIDs)
}

func (b *testBehavior) Process(in message.Envelope, out Sink) error {
	b.processed = append(b.processed, in)

	switch p := in.Body.Payload.(type) {
	case say:
		return Reply(b, sayOk{Text: p.Text}, in, out)
	case twice:
		if err := Reply(b, sayOk{Text: "1"}, in, out); err != nil {
			return err
		}
		return Reply(b, sayOk{Text: "2"}, in, out)
	case boom:
		return errBoom
	}
	return nil
}

func run(t *testing.T, b Behavior, input string) (*Node, []message.Envelope, error) {
	n := NewNode(TestConfig(t), b)

	var out bytes.Buffer
	err := n.Run(strings.NewReader(input), &out)

	return n, decodeOutput(t, out.Bytes()), err
}

func decodeOutput(t *testing.T, out []byte) []message.Envelope {
	vocab := message.NewVocabulary(message.InitOk{}, sayOk{})

	envs := []message.Envelope{}
	for _, line := range bytes.SplitAfter(out, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if line[len(line)-1] != '\n' {
			t.Fatalf("output line not terminated by a newline: %q", line)
		}
		env, err := message.DecodeEnvelope(line, vocab)
		if err != nil {
			t.Fatalf("decoding output line %q: %v", line, err)
		}
		envs = append(envs, env)
	}
	return envs
}

func TestHandshake(t *testing.T) {
	b := &testBehavior{}
	n, out, err := run(t, b, initLine+"\n")
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(out))
	}

	reply := out[0]
	if _, ok := reply.Body.Payload.(message.InitOk); !ok {
		t.Fatalf("reply should be init_ok, not %s", reply.Body.Type())
	}
	if reply.Src != "n1" || reply.Dest != "c0" {
		t.Fatalf("reply should go from n1 to c0, not from %s to %s", reply.Src, reply.Dest)
	}
	if reply.Body.InReplyTo == nil || *reply.Body.InReplyTo != 7 {
		t.Fatalf("init_ok should be in reply to 7, not %v", reply.Body.InReplyTo)
	}
	if reply.Body.MsgID == nil || *reply.Body.MsgID != 1 {
		t.Fatalf("init_ok should take msg_id 1, not %v", reply.Body.MsgID)
	}

	if b.NodeID() != "n1" || n.NodeID() != "n1" {
		t.Fatalf("node id should be n1, not %q / %q", b.NodeID(), n.NodeID())
	}
	if ids := b.NodeIDs(); len(ids) != 3 || ids[2] != "n3" {
		t.Fatalf("node ids should be retained, got %v", ids)
	}
	if b.identityCalls != 1 {
		t.Fatalf("SetIdentity should be called once, not %d times", b.identityCalls)
	}
	if n.GetState() != Shutdown {
		t.Fatalf("state should be Shutdown after end of input, not %s", n.GetState())
	}
}

func TestHandshakeWithoutTrailingNewline(t *testing.T) {
	_, out, err := run(t, &testBehavior{}, initLine)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(out))
	}
}

func TestHandshakeInitOkIsFatal(t *testing.T) {
	b := &testBehavior{}
	n := NewNode(TestConfig(t), b)

	var out bytes.Buffer
	input := `{"src":"c0","dest":"n1","body":{"msg_id":1,"in_reply_to":1,"type":"init_ok"}}` + "\n" +
		`{"src":"c1","dest":"n1","body":{"msg_id":2,"type":"say","text":"x"}}` + "\n"

	err := n.Run(strings.NewReader(input), &out)

	if !errors.Is(err, ErrInitOkBeforeInit) {
		t.Fatalf("expected ErrInitOkBeforeInit, got %v", err)
	}
	if !IsStage(err, StageHandshake) {
		t.Fatalf("error should be raised by the handshake stage, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", out.String())
	}
	if b.identityCalls != 0 || len(b.processed) != 0 {
		t.Fatalf("behavior should not be invoked")
	}
}

func TestHandshakeViolations(t *testing.T) {
	cases := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"empty input", "", func(err error) bool { return errors.Is(err, ErrMissingInit) }},
		{"blank input", "  \n", func(err error) bool { return message.IsMalformed(err, message.Syntax) }},
		{"not json", "hello\n", func(err error) bool { return message.IsMalformed(err, message.Syntax) }},
		{"application message first", `{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"say","text":"x"}}` + "\n",
			func(err error) bool { return message.IsMalformed(err, message.UnknownType) }},
		{"init without node_id", `{"src":"c0","dest":"n1","body":{"msg_id":1,"type":"init","node_ids":[]}}` + "\n",
			func(err error) bool { return message.IsMalformed(err, message.MissingField) }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n := NewNode(TestConfig(t), &testBehavior{})

			var out bytes.Buffer
			err := n.Run(strings.NewReader(c.input), &out)

			if !IsStage(err, StageHandshake) {
				t.Fatalf("expected a handshake error, got %v", err)
			}
			if !c.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Len() != 0 {
				t.Fatalf("nothing should be written, got %q", out.String())
			}
			if n.GetState() != Shutdown {
				t.Fatalf("state should be Shutdown, not %s", n.GetState())
			}
		})
	}
}

func TestReplyCorrelation(t *testing.T) {
	input := initLine + "\n" +
		`{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"say","text":"a"}}` + "\n" +
		`{"src":"c2","dest":"n1","body":{"msg_id":1,"type":"say","text":"b"}}` + "\n" +
		`{"src":"n2","dest":"n1","body":{"type":"say","text":"c"}}` + "\n"

	_, out, err := run(t, &testBehavior{}, input)
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != 4 {
		t.Fatalf("expected 4 replies, got %d", len(out))
	}

	expected := []struct {
		dest      string
		inReplyTo *uint64
		text      string
	}{
		{"c1", message.ID(1), "a"},
		{"c2", message.ID(1), "b"},
		{"n2", nil, "c"},
	}

	for i, e := range expected {
		reply := out[i+1]
		if reply.Src != "n1" || reply.Dest != e.dest {
			t.Fatalf("reply %d should go from n1 to %s, not from %s to %s", i, e.dest, reply.Src, reply.Dest)
		}
		if (e.inReplyTo == nil) != (reply.Body.InReplyTo == nil) ||
			(e.inReplyTo != nil && *e.inReplyTo != *reply.Body.InReplyTo) {
			t.Fatalf("reply %d in_reply_to should be %v, not %v", i, e.inReplyTo, reply.Body.InReplyTo)
		}
		if p := reply.Body.Payload.(sayOk); p.Text != e.text {
			t.Fatalf("reply %d should echo %q, not %q", i, e.text, p.Text)
		}
	}
}

func TestMsgIDsStrictlyIncreasing(t *testing.T) {
	var input strings.Builder
	input.WriteString(initLine + "\n")
	for i := 0; i < 20; i++ {
		if i%3 == 0 {
			input.WriteString(`{"src":"c1","dest":"n1","body":{"msg_id":5,"type":"twice"}}` + "\n")
		} else {
			input.WriteString(`{"src":"c1","dest":"n1","body":{"msg_id":5,"type":"say","text":"x"}}`)
		}
		// replies to say_ok consume nothing
		input.WriteString(`{"src":"c1","dest":"n1","body":{"msg_id":6,"type":"say_ok","text":"x"}}` + "\n")
	}

	b := &testBehavior{}
	n, out, err := run(t, b, input.String())
	if err != nil {
		t.Fatal(err)
	}

	seen := map[uint64]bool{}
	var last uint64
	for i, env := range out {
		id := *env.Body.MsgID
		if id <= last {
			t.Fatalf("msg_id %d of reply %d is not greater than %d", id, i, last)
		}
		if seen[id] {
			t.Fatalf("msg_id %d reused", id)
		}
		seen[id] = true
		last = id
	}

	if b.MsgID() != uint64(len(out)) {
		t.Fatalf("counter should have advanced once per reply: %d != %d", b.MsgID(), len(out))
	}
	if stats := n.GetStats(); stats["last_msg_id"] != stats["messages_sent"] {
		t.Fatalf("last_msg_id should equal the number of replies, got %v", stats)
	}
}

func TestMalformedMessageIsFatal(t *testing.T) {
	input := initLine + "\n" +
		`{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"say","text":"a"}}` + "\n" +
		`{"src":"c1","dest":"n1","body":{"msg_id":2,"type":"say"}}` + "\n" +
		`{"src":"c1","dest":"n1","body":{"msg_id":3,"type":"say","text":"never"}}` + "\n"

	b := &testBehavior{}
	_, out, err := run(t, b, input)

	if !IsStage(err, StageDecode) {
		t.Fatalf("expected a decode error, got %v", err)
	}
	if !message.IsMalformed(err, message.MissingField) {
		t.Fatalf("expected a MissingField error, got %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected init_ok and one reply before the failure, got %d", len(out))
	}
	if len(b.processed) != 1 {
		t.Fatalf("processing should stop at the malformed message, processed %d", len(b.processed))
	}
}

func TestInitAfterHandshakeIsMalformed(t *testing.T) {
	input := initLine + "\n" + initLine + "\n"

	_, _, err := run(t, &testBehavior{}, input)
	if !IsStage(err, StageDecode) || !message.IsMalformed(err, message.UnknownType) {
		t.Fatalf("a second init is not part of the behavior vocabulary, got %v", err)
	}
}

func TestBehaviorErrorIsFatal(t *testing.T) {
	input := initLine + "\n" +
		`{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"boom"}}` + "\n" +
		`{"src":"c1","dest":"n1","body":{"msg_id":2,"type":"say","text":"never"}}` + "\n"

	b := &testBehavior{}
	_, out, err := run(t, b, input)

	if !IsStage(err, StageDispatch) {
		t.Fatalf("expected a dispatch error, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("behavior error should be wrapped, got %v", err)
	}
	if len(out) != 1 || len(b.processed) != 1 {
		t.Fatalf("processing should stop after the failing message")
	}
}

func TestWriteFailureIsFatal(t *testing.T) {
	b := &testBehavior{}
	n := NewNode(TestConfig(t), b)

	w := &failingWriter{allow: 1}
	input := initLine + "\n" + `{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"say","text":"a"}}` + "\n"

	err := n.Run(strings.NewReader(input), w)

	if !IsStage(err, StageWrite) {
		t.Fatalf("expected a write error, got %v", err)
	}
	if !errors.Is(err, errClosed) {
		t.Fatalf("write error should be wrapped, got %v", err)
	}
	if b.MsgID() != 2 {
		t.Fatalf("counter should advance even when the write fails, got %d", b.MsgID())
	}
}

func TestHandshakeWriteFailure(t *testing.T) {
	n := NewNode(TestConfig(t), &testBehavior{})

	err := n.Run(strings.NewReader(initLine+"\n"), &failingWriter{})
	if !IsStage(err, StageWrite) {
		t.Fatalf("expected a write error, got %v", err)
	}
}

func TestJournalRecordsBothDirections(t *testing.T) {
	rec := &memRecorder{}
	conf := TestConfig(t)
	conf.Journal = rec

	n := NewNode(conf, &testBehavior{})

	var out bytes.Buffer
	input := initLine + "\n" + `{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"say","text":"a"}}` + "\n"
	if err := n.Run(strings.NewReader(input), &out); err != nil {
		t.Fatal(err)
	}

	dirs := []journal.Direction{journal.Inbound, journal.Outbound, journal.Inbound, journal.Outbound}
	if len(rec.dirs) != len(dirs) {
		t.Fatalf("expected %d journal entries, got %d", len(dirs), len(rec.dirs))
	}
	for i, d := range dirs {
		if rec.dirs[i] != d {
			t.Fatalf("journal entry %d should be %s, not %s", i, d, rec.dirs[i])
		}
	}

	lines := strings.SplitAfter(out.String(), "\n")
	if rec.lines[1] != lines[0] || rec.lines[3] != lines[1] {
		t.Fatalf("outbound journal entries should match the written lines")
	}
}

func TestJournalFailureIsNotFatal(t *testing.T) {
	conf := TestConfig(t)
	conf.Journal = &memRecorder{err: errors.New("disk full")}

	n := NewNode(conf, &testBehavior{})

	var out bytes.Buffer
	if err := n.Run(strings.NewReader(initLine+"\n"), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() == 0 {
		t.Fatal("init_ok should still be written")
	}
}

func TestStats(t *testing.T) {
	b := &testBehavior{}
	n := NewNode(TestConfig(t), b)

	stats := n.GetStats()
	if stats["state"] != "AwaitingInit" || stats["node_id"] != "" {
		t.Fatalf("unexpected initial stats %v", stats)
	}

	var out bytes.Buffer
	input := initLine + "\n" + `{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"twice"}}` + "\n"
	if err := n.Run(strings.NewReader(input), &out); err != nil {
		t.Fatal(err)
	}

	stats = n.GetStats()
	expected := map[string]string{
		"node_id":           "n1",
		"state":             "Shutdown",
		"messages_received": "2",
		"messages_sent":     "3",
		"last_msg_id":       "3",
	}
	for k, v := range expected {
		if stats[k] != v {
			t.Fatalf("stats[%s] should be %s, not %s", k, v, stats[k])
		}
	}
}

func TestReplyAdvancesCounterOnce(t *testing.T) {
	b := &testBehavior{}
	sink := &memSink{}

	in := message.Envelope{Src: "c1", Dest: "n1", Body: message.Body{MsgID: message.ID(9), Payload: say{Text: "x"}}}

	for i := 1; i <= 3; i++ {
		if err := Reply(b, sayOk{Text: "x"}, in, sink); err != nil {
			t.Fatal(err)
		}
		if b.MsgID() != uint64(i) {
			t.Fatalf("counter should be %d, not %d", i, b.MsgID())
		}
		reply := sink.envs[i-1]
		if *reply.Body.MsgID != uint64(i) || *reply.Body.InReplyTo != 9 {
			t.Fatalf("unexpected reply body %+v", reply.Body)
		}
	}
}

func TestStateString(t *testing.T) {
	for s, name := range map[State]string{AwaitingInit: "AwaitingInit", Ready: "Ready", Shutdown: "Shutdown", State(42): "Unknown"} {
		if s.String() != name {
			t.Fatalf("%d should be %s, not %s", s, name, s.String())
		}
	}
}

var errClosed = errors.New("closed pipe")

type failingWriter struct {
	allow int
	buf   bytes.Buffer
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.allow == 0 {
		return 0, errClosed
	}
	w.allow--
	return w.buf.Write(p)
}

type memRecorder struct {
	dirs  []journal.Direction
	lines []string
	err   error
}

func (r *memRecorder) Append(dir journal.Direction, line []byte) error {
	if r.err != nil {
		return r.err
	}
	r.dirs = append(r.dirs, dir)
	r.lines = append(r.lines, string(line))
	return nil
}

type memSink struct {
	envs []message.Envelope
}

func (s *memSink) Encode(env message.Envelope) error {
	s.envs = append(s.envs, env)
	return nil
}

var _ io.Writer = (*failingWriter)(nil)
