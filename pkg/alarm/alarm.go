package alarm

import (
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/batchq/pkg/clock"
	"github.com/bft-labs/batchq/pkg/event"
)

// ErrBadInterval is returned by New when the interval is not positive.
var ErrBadInterval = errors.New("batchq: alarm interval must be positive")

// Alarm is a restartable repeating countdown. Once started it fires a
// timeout notification every time its interval elapses, rearming itself
// after each one, until Stop cancels it. Restart resets the countdown
// to a full interval at any point, armed, expired, or stopped.
type Alarm struct {
	interval time.Duration
	clk      clock.Clock

	timeouts event.Feed[time.Time]

	mu    sync.Mutex
	timer clock.Timer
	armed bool
}

// New returns an unstarted alarm with the given interval. A nil clk
// selects the system clock.
func New(interval time.Duration, clk clock.Clock) (*Alarm, error) {
	if interval <= 0 {
		return nil, ErrBadInterval
	}
	if clk == nil {
		clk = clock.System
	}
	return &Alarm{interval: interval, clk: clk}, nil
}

// Interval reports the countdown length the alarm was created with.
func (a *Alarm) Interval() time.Duration { return a.interval }

// OnTimeout subscribes fn to the alarm's timeout notification. Handlers
// run synchronously on the goroutine the countdown expires on, in
// subscription order, and receive the time of expiry. The return value
// is the alarm itself so subscriptions can be chained.
func (a *Alarm) OnTimeout(fn func(now time.Time)) *Alarm {
	a.timeouts.Subscribe(fn)
	return a
}

// Start arms the countdown if it is not already armed. Starting an armed
// alarm leaves its deadline untouched.
func (a *Alarm) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.armed {
		return
	}
	a.arm()
}

// Restart arms the countdown for a full interval from now, whether the
// alarm is armed, expired, or stopped.
func (a *Alarm) Restart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.arm()
}

// Stop cancels the countdown without firing. A stopped alarm can be
// armed again with Start or Restart.
func (a *Alarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.armed = false
}

// arm schedules or reschedules the underlying timer. Callers must hold
// a.mu.
func (a *Alarm) arm() {
	if a.timer == nil {
		a.timer = a.clk.AfterFunc(a.interval, a.fire)
	} else {
		a.timer.Reset(a.interval)
	}
	a.armed = true
}

// fire runs on the timer's goroutine when the countdown expires. The
// next countdown is armed before handlers run, so a Stop from a handler
// still silences the alarm.
func (a *Alarm) fire() {
	a.mu.Lock()
	if !a.armed {
		// Stopped after the timer went off but before it reached us.
		a.mu.Unlock()
		return
	}
	a.arm()
	a.mu.Unlock()
	a.timeouts.Publish(a.clk.Now())
}
