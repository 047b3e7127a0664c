// Package message implements the wire format spoken between a node and the
// testbed harness.
//
// Every message is a JSON object on its own line:
//
//	{"src": "c1", "dest": "n1", "body": {"msg_id": 1, "in_reply_to": null, "type": "echo", "echo": "hi"}}
//
// The body carries two optional correlation fields (msg_id and in_reply_to)
// and a type-tagged payload whose fields are merged flat into the body object.
// There is no nested payload object on the wire.
//
// Payloads are plain Go structs implementing the Payload interface. A reader
// always knows which payload variants it accepts at a given point of the
// protocol, so decoding is driven by a Vocabulary: the set of payload types
// that may legally appear. Decoding peeks at the "type" tag, looks the variant
// up in the Vocabulary and then decodes the body into the matching struct.
// Any failure is reported as a MalformedEnvelopeError.
//
// A payload field is required unless its json tag carries omitempty. Unknown
// fields are ignored.
package message
