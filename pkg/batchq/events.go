package batchq

import (
	"time"

	"github.com/bft-labs/batchq/pkg/lifecycle"
)

// State is the lifecycle state of a Shipper.
type State = lifecycle.State

// Lifecycle states reported by [Shipper.Status].
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ShipSuccessEvent is emitted after a batch is delivered.
type ShipSuccessEvent struct {
	// Lines is the number of lines in the delivered batch.
	Lines int

	// Duration is how long the successful delivery attempt took.
	Duration time.Duration
}

// ShipErrorEvent is emitted after a failed delivery attempt.
type ShipErrorEvent struct {
	// Err is the delivery error.
	Err error

	// Lines is the number of lines in the failed batch.
	Lines int

	// Retryable reports whether another attempt follows. When false the
	// batch has been dropped.
	Retryable bool
}

// EventHandler receives shipper events. Handlers are called
// synchronously from the shipping goroutines and should return quickly.
//
// Embed [BaseEventHandler] to implement only the methods you care
// about.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnShipSuccess(event ShipSuccessEvent)
	OnShipError(event ShipErrorEvent)
}

// BaseEventHandler provides no-op implementations of every EventHandler
// method.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnShipSuccess(ShipSuccessEvent) {}
func (BaseEventHandler) OnShipError(ShipErrorEvent)     {}

// eventEmitterWrapper adapts an EventHandler to the emitter interfaces
// the lifecycle manager and the pipeline call into.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnShipSuccess(lines int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnShipSuccess(ShipSuccessEvent{
		Lines:    lines,
		Duration: duration,
	})
}

func (e *eventEmitterWrapper) OnShipError(err error, lines int, retryable bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnShipError(ShipErrorEvent{
		Err:       err,
		Lines:     lines,
		Retryable: retryable,
	})
}
