package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
)

// DecodeEnvelope decodes a single JSON value into an Envelope whose payload
// belongs to vocab. Trailing whitespace, including the newline delimiter, is
// allowed.
func DecodeEnvelope(data []byte, vocab *Vocabulary) (Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Envelope{}, classify(err, "", "")
	}

	env := Envelope{}
	var err error

	if env.Src, err = stringField(top, "src", ""); err != nil {
		return Envelope{}, err
	}
	if env.Dest, err = stringField(top, "dest", ""); err != nil {
		return Envelope{}, err
	}

	rawBody, ok := present(top, "body")
	if !ok {
		return Envelope{}, newMalformed(MissingField, "body", "", nil)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return Envelope{}, classify(err, "body", "")
	}

	if env.Body.MsgID, err = idField(body, msgIDKey); err != nil {
		return Envelope{}, err
	}
	if env.Body.InReplyTo, err = idField(body, inReplyToKey); err != nil {
		return Envelope{}, err
	}

	tag, err := stringField(body, typeKey, "")
	if err != nil {
		return Envelope{}, err
	}

	ptr, ok := vocab.New(tag)
	if !ok {
		return Envelope{}, newMalformed(UnknownType, typeKey, tag,
			fmt.Errorf("expected one of %v", vocab.Types()))
	}

	for _, f := range vocab.required(tag) {
		if _, ok := present(body, f); !ok {
			return Envelope{}, newMalformed(MissingField, f, tag, nil)
		}
	}

	if err := json.Unmarshal(rawBody, ptr); err != nil {
		return Envelope{}, classify(err, "", tag)
	}

	env.Body.Payload = reflect.ValueOf(ptr).Elem().Interface().(Payload)

	return env, nil
}

// EncodeEnvelope returns the wire form of env: exactly one line terminated by
// a single newline.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	line, err := marshal(env)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// Decoder reads a stream of envelopes. Values are not required to be
// separated by newlines, any JSON whitespace will do.
type Decoder struct {
	dec   *json.Decoder
	vocab *Vocabulary
	raw   json.RawMessage
}

// NewDecoder returns a Decoder reading from r and accepting payloads of vocab.
func NewDecoder(r io.Reader, vocab *Vocabulary) *Decoder {
	return &Decoder{
		dec:   json.NewDecoder(r),
		vocab: vocab,
	}
}

// Next decodes the next envelope of the stream. It returns io.EOF when the
// stream ends cleanly between two values.
func (d *Decoder) Next() (Envelope, error) {
	d.raw = nil

	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return Envelope{}, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return Envelope{}, newMalformed(Syntax, "", "", err)
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return Envelope{}, newMalformed(Syntax, "", "", err)
		}
		return Envelope{}, err
	}

	d.raw = raw

	return DecodeEnvelope(raw, d.vocab)
}

// Raw returns the undecoded bytes of the last value read by Next.
func (d *Decoder) Raw() []byte {
	return d.raw
}

// Encoder writes envelopes to a stream, one line per envelope. Each envelope
// is handed to the underlying writer in a single Write call.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the wire form of env.
func (e *Encoder) Encode(env Envelope) error {
	line, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	_, err = e.w.Write(line)
	return err
}

func present(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := m[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func stringField(m map[string]json.RawMessage, key, tag string) (string, error) {
	raw, ok := present(m, key)
	if !ok {
		return "", newMalformed(MissingField, key, tag, nil)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", classify(err, key, tag)
	}
	return s, nil
}

func idField(m map[string]json.RawMessage, key string) (*uint64, error) {
	raw, ok := present(m, key)
	if !ok {
		return nil, nil
	}
	var id uint64
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, classify(err, key, "")
	}
	return &id, nil
}

func classify(err error, field, tag string) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if field == "" {
			field = typeErr.Field
		}
		return newMalformed(TypeMismatch, field, tag, err)
	}
	return newMalformed(Syntax, field, tag, err)
}
