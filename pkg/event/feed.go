// Package event provides a minimal synchronous publish/subscribe feed.
//
// A Feed fans a published value out to every subscribed handler, in the
// order the handlers were attached, on the goroutine that called Publish.
// Publish does not return until every handler has returned, so handlers
// observe a consistent world and may themselves publish to other feeds.
package event

import "sync"

// Feed delivers values of type T to subscribed handlers.
//
// The zero value is ready to use. Subscribe and Publish may be called from
// multiple goroutines; handler invocation itself happens outside the feed's
// lock, so a handler may call back into the Feed (or into whatever component
// owns it) without deadlocking.
type Feed[T any] struct {
	mu       sync.Mutex
	handlers []func(T)
}

// Subscribe attaches fn to the feed. Handlers cannot be removed; a feed
// lives exactly as long as its owner.
func (f *Feed[T]) Subscribe(fn func(T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, fn)
}

// Publish delivers v to every handler subscribed at the time of the call,
// synchronously and in subscription order. Handlers subscribed while a
// publish is in flight see only later publishes.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	hs := f.handlers
	f.mu.Unlock()
	for _, fn := range hs {
		fn(v)
	}
}
