package batch

import (
	"slices"
	"sync"

	"github.com/bft-labs/batchq/pkg/alarm"
	"github.com/bft-labs/batchq/pkg/clock"
	"github.com/bft-labs/batchq/pkg/event"
	"github.com/bft-labs/batchq/pkg/log"
)

// Batcher accumulates items of type T and releases them in batches.
// Items enter through Push and leave, all at once and in insertion
// order, whenever Flush runs. Flush policies attached with FlushAtSize,
// FlushWhen, and FlushEvery decide when that happens; without one the
// batcher flushes only on explicit Flush calls.
type Batcher[T any] struct {
	mu     sync.Mutex
	buf    []T
	alarms []*alarm.Alarm
	closed bool

	pushes  event.Feed[T]
	flushes event.Feed[[]T]

	clk    clock.Clock
	logger log.Logger
}

// Option configures a Batcher at construction time.
type Option[T any] func(*Batcher[T])

// WithLogger sets the logger the batcher reports to. The default
// discards output.
func WithLogger[T any](logger log.Logger) Option[T] {
	return func(b *Batcher[T]) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the clock timed flush policies run on. The default is
// the system clock; tests pass a clock.Fake.
func WithClock[T any](clk clock.Clock) Option[T] {
	return func(b *Batcher[T]) {
		if clk != nil {
			b.clk = clk
		}
	}
}

// New creates an empty Batcher.
func New[T any](opts ...Option[T]) *Batcher[T] {
	b := &Batcher[T]{
		clk:    clock.System,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Push appends item to the buffer and then notifies push subscribers.
// Subscribers, including policy checks, run synchronously on the calling
// goroutine, so a push that trips a policy completes the resulting flush
// before Push returns.
func (b *Batcher[T]) Push(item T) {
	b.mu.Lock()
	b.buf = append(b.buf, item)
	b.mu.Unlock()
	b.pushes.Publish(item)
}

// Flush detaches the buffered items as a batch, leaves the buffer empty,
// and delivers the batch to flush subscribers in subscription order. It
// fires regardless of the buffer's state: flushing an empty buffer
// delivers an empty batch. The batch is detached before any handler
// runs, so items pushed by or during handlers accumulate toward the
// next one, and handlers may retain the batch indefinitely.
func (b *Batcher[T]) Flush() {
	b.mu.Lock()
	batch := b.buf
	b.buf = nil
	b.mu.Unlock()
	b.logger.Debug("batch released", log.Int("size", len(batch)))
	b.flushes.Publish(batch)
}

// Len reports the number of buffered items.
func (b *Batcher[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// IsEmpty reports whether the buffer holds no items.
func (b *Batcher[T]) IsEmpty() bool {
	return b.Len() == 0
}

// Items returns a copy of the buffered items in insertion order.
// Mutating the returned slice does not affect the buffer.
func (b *Batcher[T]) Items() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.buf)
}

// OnPush subscribes fn to every pushed item. Handlers run synchronously
// on the pushing goroutine, after the item is buffered, in subscription
// order. The return value is the batcher itself so calls can be chained.
func (b *Batcher[T]) OnPush(fn func(item T)) *Batcher[T] {
	b.pushes.Subscribe(fn)
	return b
}

// OnFlush subscribes fn to every released batch. Handlers run
// synchronously on the flushing goroutine, in subscription order, and
// receive the detached batch.
func (b *Batcher[T]) OnFlush(fn func(batch []T)) *Batcher[T] {
	b.flushes.Subscribe(fn)
	return b
}

// Close stops periodic flushing: every alarm attached by FlushEvery is
// canceled and later flushes no longer rearm them. Close does not flush;
// callers that want the remainder released call Flush first. It is
// idempotent, and a closed batcher still accepts Push and Flush.
func (b *Batcher[T]) Close() {
	b.mu.Lock()
	alarms := b.alarms
	b.alarms = nil
	b.closed = true
	b.mu.Unlock()
	for _, a := range alarms {
		a.Stop()
	}
}

func (b *Batcher[T]) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
