package batchq

import (
	"context"
	"io"

	"github.com/bft-labs/batchq/internal/pipeline"
)

// Source supplies the lines a Shipper batches. Next blocks until a line
// is available and returns io.EOF when the input is exhausted, which
// makes the shipper drain and stop cleanly. One goroutine calls Next.
//
// A Source may additionally implement Position() int64 reporting the
// byte offset just past the last delivered line; the shipper then
// persists it for resumption when a state directory is configured.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// SourceFromReader turns any io.Reader into a line-oriented Source. A
// final line without a trailing newline is still delivered.
func SourceFromReader(r io.Reader) Source {
	return pipeline.NewReaderSource(r)
}
