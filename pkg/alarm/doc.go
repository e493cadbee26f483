// Package alarm provides a restartable repeating countdown timer.
//
// This package wraps a clock.Timer in a small state machine with three
// operations (Start, Restart, Stop) and an outgoing timeout
// notification that fires once per elapsed interval until the alarm is
// stopped. Components that need "do something unless X happens within
// T" logic subscribe to the timeout and restart the alarm whenever X
// happens.
//
// # Usage
//
// Create, subscribe, start:
//
//	a, err := alarm.New(5*time.Second, nil)
//	if err != nil {
//	    return err
//	}
//	a.OnTimeout(func(now time.Time) {
//	    flushPending()
//	})
//	a.Start()
//
// Passing a clock.Fake instead of nil puts the countdown under test
// control.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package alarm
