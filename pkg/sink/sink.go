package sink

import (
	"context"
	"time"
)

// Sink delivers released batches to a destination. Implementations
// handle serialization, transport, and authentication.
type Sink[T any] interface {
	// Ship delivers one batch. It returns nil on success and an error
	// for the caller to retry or drop; implementations do not retry
	// internally.
	Ship(ctx context.Context, items []T) error

	// Name identifies the sink in logs and metrics.
	Name() string
}

// envelope is the JSON wire shape shared by the writer and HTTP sinks.
type envelope[T any] struct {
	Time  time.Time `json:"ts"`
	Count int       `json:"count"`
	Items []T       `json:"items"`
}

func newEnvelope[T any](items []T) envelope[T] {
	if items == nil {
		items = []T{}
	}
	return envelope[T]{
		Time:  time.Now().UTC(),
		Count: len(items),
		Items: items,
	}
}
