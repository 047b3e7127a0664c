package node

import (
	"sync/atomic"
)

// State captures the state of a node: AwaitingInit, Ready, or Shutdown
type State uint32

const (
	// AwaitingInit is the initial state of a node. The node has no identity
	// yet and only accepts an init message.
	AwaitingInit State = iota
	// Ready is the state in which the node has an identity and dispatches
	// application messages to its Behavior.
	Ready
	// Shutdown is the state in which the input stream has ended or a fatal
	// error occurred.
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case AwaitingInit:
		return "AwaitingInit"
	case Ready:
		return "Ready"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// state is read by the stats service from another goroutine, hence the
// atomic accessors.
type state struct {
	state State
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}
