package clock

import (
	"reflect"
	"testing"
	"time"
)

func TestFakeAdvanceFiresDueTimers(t *testing.T) {
	f := NewFake()
	fired := 0
	f.AfterFunc(100*time.Millisecond, func() { fired++ })

	f.Advance(99 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("timer fired %d times before its deadline", fired)
	}

	f.Advance(1 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("timer fired %d times at its deadline, want 1", fired)
	}

	f.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("one-shot timer fired %d times, want 1", fired)
	}
}

func TestFakeAdvanceFiresInDeadlineOrder(t *testing.T) {
	f := NewFake()
	var got []string

	f.AfterFunc(300*time.Millisecond, func() { got = append(got, "late") })
	f.AfterFunc(100*time.Millisecond, func() { got = append(got, "early") })
	f.AfterFunc(200*time.Millisecond, func() { got = append(got, "middle") })

	f.Advance(time.Second)

	want := []string{"early", "middle", "late"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("firing order = %v, want %v", got, want)
	}
}

func TestFakeAdvanceBreaksTiesByScheduleOrder(t *testing.T) {
	f := NewFake()
	var got []int

	for i := 0; i < 3; i++ {
		i := i
		f.AfterFunc(50*time.Millisecond, func() { got = append(got, i) })
	}

	f.Advance(50 * time.Millisecond)

	want := []int{0, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tie order = %v, want %v", got, want)
	}
}

func TestFakeNowTracksFiringAndTarget(t *testing.T) {
	f := NewFake()
	start := f.Now()

	var at time.Time
	f.AfterFunc(250*time.Millisecond, func() { at = f.Now() })

	f.Advance(time.Second)

	if got, want := at.Sub(start), 250*time.Millisecond; got != want {
		t.Errorf("clock inside timer fn = start+%v, want start+%v", got, want)
	}
	if got, want := f.Now().Sub(start), time.Second; got != want {
		t.Errorf("clock after Advance = start+%v, want start+%v", got, want)
	}
}

func TestFakeTimerStop(t *testing.T) {
	f := NewFake()
	fired := false
	tm := f.AfterFunc(100*time.Millisecond, func() { fired = true })

	if !tm.Stop() {
		t.Error("Stop on an active timer = false, want true")
	}
	if tm.Stop() {
		t.Error("Stop on a stopped timer = true, want false")
	}

	f.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestFakeTimerResetReschedules(t *testing.T) {
	f := NewFake()
	fired := 0
	tm := f.AfterFunc(100*time.Millisecond, func() { fired++ })

	f.Advance(60 * time.Millisecond)
	if !tm.Reset(100 * time.Millisecond) {
		t.Error("Reset on an active timer = false, want true")
	}

	f.Advance(60 * time.Millisecond) // original deadline passes
	if fired != 0 {
		t.Fatalf("timer fired %d times at its original deadline after Reset", fired)
	}

	f.Advance(40 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("timer fired %d times at its reset deadline, want 1", fired)
	}
}

func TestFakeTimerResetAfterFiringRearms(t *testing.T) {
	f := NewFake()
	fired := 0
	var tm Timer
	tm = f.AfterFunc(100*time.Millisecond, func() { fired++ })

	f.Advance(100 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	if tm.Reset(100 * time.Millisecond) {
		t.Error("Reset on a fired timer = true, want false")
	}
	f.Advance(100 * time.Millisecond)
	if fired != 2 {
		t.Fatalf("fired = %d after rearm, want 2", fired)
	}
}

func TestFakeTimerFnMayScheduleMoreWork(t *testing.T) {
	f := NewFake()
	var got []string

	f.AfterFunc(100*time.Millisecond, func() {
		got = append(got, "first")
		f.AfterFunc(100*time.Millisecond, func() { got = append(got, "second") })
	})

	f.Advance(200 * time.Millisecond)

	want := []string{"first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chained firing = %v, want %v", got, want)
	}
}
