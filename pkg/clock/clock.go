// Package clock abstracts the parts of the standard time package that
// batchq uses to schedule work. Production code runs on System; tests
// substitute a Fake and advance it by hand, which makes timer-driven
// behavior fully deterministic.
package clock

import "time"

// Clock supplies the current time and one-shot timers.
type Clock interface {
	// Now reports the clock's current time.
	Now() time.Time

	// AfterFunc arranges for fn to be called on its own goroutine after
	// duration d has elapsed on this clock, and returns a Timer that can
	// reschedule or cancel the call.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a scheduled call that can be rescheduled or canceled. Its
// methods follow the semantics of time.Timer for timers created with
// time.AfterFunc.
type Timer interface {
	// Reset reschedules the call for duration d from now. It reports
	// whether the timer had been active, and arms the timer again even
	// if it had already fired or been stopped.
	Reset(d time.Duration) bool

	// Stop cancels the call. It reports whether the timer had been
	// active; it does not wait for a call already in flight.
	Stop() bool
}

// System is the Clock backed by the real time package.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{time.AfterFunc(d, fn)}
}

type systemTimer struct{ t *time.Timer }

func (st systemTimer) Reset(d time.Duration) bool { return st.t.Reset(d) }

func (st systemTimer) Stop() bool { return st.t.Stop() }
