package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven Clock for tests. Time stands still until
// Advance is called; Advance then fires every timer that comes due, in
// deadline order, synchronously on the calling goroutine. When Advance
// returns, all work scheduled within the advanced window has completed,
// so tests need no sleeps or polling.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	seq    uint64
}

// NewFake returns a Fake positioned at the Unix epoch.
func NewFake() *Fake {
	return &Fake{now: time.Unix(0, 0).UTC()}
}

// Now reports the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn to run when the fake has been advanced by at
// least d. Non-positive durations fire on the next Advance call.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{
		clock:  f,
		fn:     fn,
		when:   f.now.Add(d),
		seq:    f.seq,
		active: true,
	}
	f.seq++
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the fake's time forward by d, firing due timers one at a
// time in deadline order. Each timer's function runs with the clock set
// to that timer's deadline and may schedule or reset timers itself; newly
// due work keeps firing until the window is drained. Advance must not be
// called from within a timer function.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		t := f.nextDue(target)
		if t == nil {
			break
		}
		if t.when.After(f.now) {
			f.now = t.when
		}
		t.active = false
		f.remove(t)
		fn := t.fn
		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}

// nextDue returns the pending timer with the earliest deadline not after
// limit, breaking ties by scheduling order. Callers must hold f.mu.
func (f *Fake) nextDue(limit time.Time) *fakeTimer {
	var due *fakeTimer
	for _, t := range f.timers {
		if t.when.After(limit) {
			continue
		}
		if due == nil || t.when.Before(due.when) ||
			(t.when.Equal(due.when) && t.seq < due.seq) {
			due = t
		}
	}
	return due
}

// remove deletes t from the pending set. Callers must hold f.mu.
func (f *Fake) remove(t *fakeTimer) {
	for i, ft := range f.timers {
		if ft == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

type fakeTimer struct {
	clock  *Fake
	fn     func()
	when   time.Time
	seq    uint64
	active bool
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	f := t.clock
	f.mu.Lock()
	defer f.mu.Unlock()
	was := t.active
	t.when = f.now.Add(d)
	t.seq = f.seq
	f.seq++
	if !t.active {
		t.active = true
		f.timers = append(f.timers, t)
	}
	return was
}

func (t *fakeTimer) Stop() bool {
	f := t.clock
	f.mu.Lock()
	defer f.mu.Unlock()
	was := t.active
	if t.active {
		t.active = false
		f.remove(t)
	}
	return was
}
