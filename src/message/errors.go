package message

import (
	"errors"
	"fmt"
)

// MalformedReason classifies why an envelope could not be decoded.
type MalformedReason uint32

const (
	// Syntax means the input is not a valid JSON value.
	Syntax MalformedReason = iota
	// MissingField means a required field is absent or null.
	MissingField
	// UnknownType means the type tag is not part of the expected Vocabulary.
	UnknownType
	// TypeMismatch means a field holds a JSON value of the wrong type.
	TypeMismatch
)

// String ...
func (r MalformedReason) String() string {
	switch r {
	case Syntax:
		return "Syntax"
	case MissingField:
		return "MissingField"
	case UnknownType:
		return "UnknownType"
	case TypeMismatch:
		return "TypeMismatch"
	default:
		return "Unknown"
	}
}

// MalformedEnvelopeError is returned when a line can not be decoded into an
// Envelope of the expected Vocabulary.
type MalformedEnvelopeError struct {
	Reason MalformedReason
	// Field is the offending key, when known.
	Field string
	// Tag is the payload type tag, when known.
	Tag string
	Err error
}

func newMalformed(reason MalformedReason, field, tag string, err error) *MalformedEnvelopeError {
	return &MalformedEnvelopeError{
		Reason: reason,
		Field:  field,
		Tag:    tag,
		Err:    err,
	}
}

// Error ...
func (e *MalformedEnvelopeError) Error() string {
	m := fmt.Sprintf("malformed envelope: %s", e.Reason)
	if e.Tag != "" {
		m += fmt.Sprintf(", type %q", e.Tag)
	}
	if e.Field != "" {
		m += fmt.Sprintf(", field %q", e.Field)
	}
	if e.Err != nil {
		m += ": " + e.Err.Error()
	}
	return m
}

// Unwrap ...
func (e *MalformedEnvelopeError) Unwrap() error {
	return e.Err
}

// IsMalformed checks that err wraps a MalformedEnvelopeError with the given
// reason.
func IsMalformed(err error, reason MalformedReason) bool {
	var m *MalformedEnvelopeError
	return errors.As(err, &m) && m.Reason == reason
}
