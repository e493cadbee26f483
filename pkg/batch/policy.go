package batch

import (
	"time"

	"github.com/bft-labs/batchq/pkg/alarm"
)

// FlushAtSize attaches a policy that flushes as soon as the buffer holds
// n or more items. The check runs after each push, so a threshold of 1
// releases a singleton batch for every item. Thresholds below 1 are
// rejected with ErrBadThreshold and attach nothing.
func (b *Batcher[T]) FlushAtSize(n int) error {
	if n < 1 {
		return ErrBadThreshold
	}
	b.OnPush(func(T) {
		if b.Len() >= n {
			b.Flush()
		}
	})
	return nil
}

// FlushWhen attaches a policy that consults pred after each push and
// flushes when it reports true. The predicate receives the batcher and
// may inspect Len, IsEmpty, or Items, or carry its own running state.
// The return value is the batcher itself so calls can be chained.
func (b *Batcher[T]) FlushWhen(pred func(*Batcher[T]) bool) *Batcher[T] {
	b.OnPush(func(T) {
		if pred(b) {
			b.Flush()
		}
	})
	return b
}

// PeriodicOption configures FlushEvery.
type PeriodicOption func(*periodicPolicy)

type periodicPolicy struct {
	skipEmpty bool
}

// SkipEmpty makes a periodic policy sit an interval out instead of
// releasing an empty batch when it elapses with nothing buffered.
func SkipEmpty() PeriodicOption {
	return func(p *periodicPolicy) {
		p.skipEmpty = true
	}
}

// FlushEvery attaches a policy that guarantees a flush at least every
// interval. Any flush, whichever policy or explicit call triggered it,
// rearms the countdown, so the alarm only fires after a full interval
// without one. By default an elapsing interval flushes even when the
// buffer is empty; SkipEmpty suppresses those. Non-positive intervals
// are rejected with alarm.ErrBadInterval and attach nothing.
func (b *Batcher[T]) FlushEvery(interval time.Duration, opts ...PeriodicOption) error {
	var p periodicPolicy
	for _, opt := range opts {
		opt(&p)
	}

	a, err := alarm.New(interval, b.clk)
	if err != nil {
		return err
	}

	b.OnFlush(func([]T) {
		if b.isClosed() {
			return
		}
		a.Restart()
	})

	a.OnTimeout(func(time.Time) {
		if p.skipEmpty && b.IsEmpty() {
			// The alarm keeps counting on its own; just skip the flush.
			return
		}
		b.Flush()
	})

	b.mu.Lock()
	b.alarms = append(b.alarms, a)
	b.mu.Unlock()
	a.Start()
	return nil
}
