package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bft-labs/batchq/pkg/log"
)

// Writer is a Sink that encodes each batch as one JSON envelope per line
// on an io.Writer. It is the sink behind stdout output and handy in
// tests with a bytes.Buffer.
type Writer[T any] struct {
	mu     sync.Mutex
	w      io.Writer
	logger log.Logger
}

// NewWriter creates a writer sink. A nil logger discards output.
func NewWriter[T any](w io.Writer, logger log.Logger) *Writer[T] {
	if logger == nil {
		logger = log.Nop()
	}
	return &Writer[T]{w: w, logger: logger}
}

// Ship writes one envelope line for the batch. Empty batches write
// nothing.
func (s *Writer[T]) Ship(_ context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	data, err := json.Marshal(newEnvelope(items))
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

// Name identifies the sink.
func (s *Writer[T]) Name() string { return "writer" }
