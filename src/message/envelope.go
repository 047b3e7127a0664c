package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Envelope is one directed message between two node identities. A node may
// address itself.
type Envelope struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Body Body   `json:"body"`
}

// Body carries the correlation identifiers and the payload. MsgID identifies
// the message from its sender's point of view. InReplyTo, when set, is the
// MsgID of the message being answered.
type Body struct {
	MsgID     *uint64
	InReplyTo *uint64
	Payload   Payload
}

// ID returns a pointer to v, for building Bodies.
func ID(v uint64) *uint64 {
	return &v
}

// Type returns the tag of the payload, or "" if there is none.
func (b Body) Type() string {
	if b.Payload == nil {
		return ""
	}
	return b.Payload.Type()
}

// MarshalJSON writes msg_id, in_reply_to and type followed by the payload
// fields, all in one flat object. Absent identifiers are written as null.
// Required fields are never written as null: nil slices and maps become [] and
// {}, and a nil pointer is a MissingField error.
func (b Body) MarshalJSON() ([]byte, error) {
	if b.Payload == nil {
		return nil, errors.New("message: body has no payload")
	}

	wire, err := wireValue(b.Payload)
	if err != nil {
		return nil, err
	}

	fields, err := marshal(wire)
	if err != nil {
		return nil, err
	}
	if len(fields) < 2 || fields[0] != '{' || fields[len(fields)-1] != '}' {
		return nil, fmt.Errorf("message: payload %q does not encode as a JSON object", b.Payload.Type())
	}

	tag, err := marshal(b.Payload.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"` + msgIDKey + `":`)
	writeID(&buf, b.MsgID)
	buf.WriteString(`,"` + inReplyToKey + `":`)
	writeID(&buf, b.InReplyTo)
	buf.WriteString(`,"` + typeKey + `":`)
	buf.Write(tag)

	if inner := bytes.TrimSpace(fields[1 : len(fields)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func writeID(buf *bytes.Buffer, id *uint64) {
	if id == nil {
		buf.WriteString("null")
		return
	}
	buf.WriteString(strconv.FormatUint(*id, 10))
}

// marshal is json.Marshal without HTML escaping and without the trailing
// newline added by json.Encoder.
func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
