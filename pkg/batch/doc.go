// Package batch provides a generic accumulate-and-release buffer.
//
// This package defines the Batcher, which collects items one at a time
// and hands them off in batches. What counts as "time to hand off" is
// pluggable: size thresholds, arbitrary predicates, and wall-clock
// intervals can be attached in any combination, and all of them funnel
// into the same flush path that explicit Flush calls use.
//
// # Usage
//
// Collect lines and ship them in batches of 100, or after 5 seconds of
// accumulation, whichever comes first:
//
//	b := batch.New[string]()
//	b.OnFlush(func(lines []string) {
//	    ship(lines)
//	})
//	if err := b.FlushAtSize(100); err != nil {
//	    return err
//	}
//	if err := b.FlushEvery(5*time.Second, batch.SkipEmpty()); err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	for line := range input {
//	    b.Push(line)
//	}
//	b.Flush()
//
// # Flush Policies
//
// FlushAtSize(n) flushes when the buffer reaches n items. FlushWhen(pred)
// consults pred after every push; byte budgets and other running measures
// are built on it. FlushEvery(interval) guarantees a flush at least once
// per interval, with every flush resetting its countdown. Policies
// compose: each one observes pushes and flushes independently, and
// whichever fires first releases the batch for all of them.
//
// # Delivery Semantics
//
// All notification is synchronous. Push handlers run on the pushing
// goroutine after the item is buffered; flush handlers run on whichever
// goroutine triggered the flush and receive the detached batch, which
// the batcher never touches again. A handler that panics does so on the
// caller's stack, after the buffer mutation it observed was committed.
//
// # Concurrency
//
// The buffer itself is guarded by a mutex, so timed flushes may race
// with a single producer safely. The batcher does not serialize handler
// execution across goroutines; pipelines that push from several
// goroutines at once should put their own coordination in front.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package batch
