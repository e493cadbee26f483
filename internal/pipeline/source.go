package pipeline

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Source yields lines for the pipeline to batch. Implementations block
// in Next until a line is available, the input is exhausted (io.EOF), or
// ctx is canceled. One goroutine calls Next.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Positioner is implemented by sources that can report the byte offset
// just past the last delivered line. The pipeline persists it so a
// follow can resume where it left off.
type Positioner interface {
	Position() int64
}

// Gate delays shipping while the host is busy. When OK reports false
// the pipeline holds a released batch back for a bounded time before
// attempting delivery anyway.
type Gate interface {
	OK() bool
}

// ReaderSource adapts an io.Reader into a Source, delivering one line
// per Next call. A final line without a terminator is delivered before
// io.EOF.
type ReaderSource struct {
	reader *bufio.Reader
	read   int64
	done   bool
}

// NewReaderSource wraps r for line-at-a-time reading.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{reader: bufio.NewReader(r)}
}

// NewReaderSourceAt wraps r whose read position is already offset bytes
// in, so Position reports absolute offsets.
func NewReaderSourceAt(r io.Reader, offset int64) *ReaderSource {
	return &ReaderSource{reader: bufio.NewReader(r), read: offset}
}

// Next returns the next line without its trailing newline. After the
// reader is exhausted every call returns io.EOF.
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	chunk, err := s.reader.ReadString('\n')
	s.read += int64(len(chunk))
	if err == nil {
		return strings.TrimRight(chunk, "\r\n"), nil
	}
	if err != io.EOF {
		return "", err
	}
	s.done = true
	if chunk == "" {
		return "", io.EOF
	}
	return strings.TrimRight(chunk, "\r\n"), nil
}

// Position returns the number of bytes consumed from the reader.
func (s *ReaderSource) Position() int64 {
	return s.read
}
