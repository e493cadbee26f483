package lifecycle

import "time"

// State is a point in the shipper lifecycle. A healthy run walks
// Stopped, Starting, Running, Stopping, and back to Stopped; a failed
// startup or a pipeline error lands in Crashed, from which a fresh
// Start is allowed.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

var stateNames = [...]string{"Stopped", "Starting", "Running", "Stopping", "Crashed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// EventEmitter receives every accepted state transition together with
// the reason the caller gave for it. Rejected transitions are not
// reported.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager is the state machine a shipper delegates its lifecycle to.
// It validates transitions, tracks worker goroutines, and bounds how
// long shutdown may wait for them.
type Manager interface {
	// State reports the current lifecycle state.
	State() State

	// CanStart reports whether a Start is admissible from the
	// current state.
	CanStart() bool

	// CanStop reports whether a Stop is admissible from the
	// current state.
	CanStop() bool

	// TransitionTo moves the machine to newState, recording reason.
	// Invalid transitions are rejected with an error and leave the
	// state untouched.
	TransitionTo(newState State, reason string) error

	// WaitWithTimeout blocks until every registered worker has
	// called WorkerDone, or returns ErrShutdownTimeout.
	WaitWithTimeout(timeout time.Duration) error

	// AddWorker registers a worker goroutine to wait for.
	AddWorker()

	// WorkerDone marks one registered worker as finished.
	WorkerDone()
}
