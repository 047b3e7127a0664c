package node

import (
	"errors"
	"fmt"
)

// Stage identifies the part of the runtime where a fatal error occurred.
type Stage uint32

const (
	// StageHandshake covers reading, decoding and acknowledging the init
	// message.
	StageHandshake Stage = iota
	// StageDecode covers decoding application messages after the handshake.
	StageDecode
	// StageDispatch covers errors returned by a Behavior.
	StageDispatch
	// StageWrite covers encoding and writing replies.
	StageWrite
)

// String ...
func (s Stage) String() string {
	switch s {
	case StageHandshake:
		return "handshake"
	case StageDecode:
		return "decode"
	case StageDispatch:
		return "dispatch"
	case StageWrite:
		return "write"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingInit is returned when the input ends before the init message.
	ErrMissingInit = errors.New("input ended before init message")

	// ErrInitOkBeforeInit is returned when the first message is an init_ok.
	// A node can not receive an acknowledgement before sending anything.
	ErrInitOkBeforeInit = errors.New("received init_ok before init")
)

// StageError is a fatal error tagged with the Stage that produced it. Every
// error returned by Node.Run is a StageError.
type StageError struct {
	Stage Stage
	Err   error
}

// Error ...
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap ...
func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// IsStage checks that err is a StageError raised in the given stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
