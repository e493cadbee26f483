// Package tail follows a line-oriented file, delivering complete lines
// as they are appended. Rotation and truncation reopen the file; end of
// file blocks on filesystem events rather than polling.
package tail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/batchq/pkg/log"
)

// Follower reads a file line by line and waits for more data at end of
// file. It is not safe for concurrent use; one goroutine calls Next.
type Follower struct {
	path   string
	logger log.Logger

	watcher *fsnotify.Watcher
	file    *os.File
	reader  *bufio.Reader
	pending []byte
	read    int64
}

// NewFollower opens path for following from the start of the file. The
// parent directory is watched so rotations that recreate the file are
// picked up.
func NewFollower(path string, logger log.Logger) (*Follower, error) {
	return NewFollowerAt(path, 0, logger)
}

// NewFollowerAt opens path for following at a byte offset, resuming a
// previous follow. An offset outside the current file is ignored and the
// follow starts from the top.
func NewFollowerAt(path string, offset int64, logger log.Logger) (*Follower, error) {
	if logger == nil {
		logger = log.Nop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", abs, err)
	}

	if offset > 0 {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("stat %s: %w", abs, err)
		}
		if offset > info.Size() {
			logger.Warn("saved offset beyond end of file, starting over",
				log.Str("path", abs), log.Int64("offset", offset), log.Int64("size", info.Size()))
			offset = 0
		} else if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("seek %s: %w", abs, err)
		}
	} else {
		offset = 0
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		f.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Follower{
		path:    abs,
		logger:  logger,
		watcher: watcher,
		file:    f,
		reader:  bufio.NewReader(f),
		read:    offset,
	}, nil
}

// Next returns the next complete line without its trailing newline,
// blocking until one is appended or ctx is canceled. Partial writes are
// held back until their newline arrives.
func (t *Follower) Next(ctx context.Context) (string, error) {
	for {
		chunk, err := t.reader.ReadString('\n')
		t.read += int64(len(chunk))
		if err == nil {
			line := string(t.pending) + chunk
			t.pending = t.pending[:0]
			return strings.TrimRight(line, "\r\n"), nil
		}
		if err != io.EOF {
			return "", fmt.Errorf("read %s: %w", t.path, err)
		}
		t.pending = append(t.pending, chunk...)

		if err := t.waitWrite(ctx); err != nil {
			return "", err
		}
	}
}

// Position returns the byte offset just past the last line Next has
// delivered. Bytes of a pending partial line are not counted, so the
// offset always lands on a line boundary and is safe to resume from.
// Call it from the goroutine that calls Next.
func (t *Follower) Position() int64 {
	return t.read - int64(len(t.pending))
}

// waitWrite blocks until the followed file changes, reopening it after
// rotation or truncation.
func (t *Follower) waitWrite(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watch %s: watcher closed", t.path)
			}
			if filepath.Clean(event.Name) != t.path {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// A new file took the followed path.
				if err := t.reopen(); err != nil {
					return err
				}
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if trunc, err := t.truncated(); err == nil && trunc {
				if err := t.reopen(); err != nil {
					return err
				}
			}
			return nil

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watch %s: watcher closed", t.path)
			}
			t.logger.Warn("file watch error", log.Err(err))
		}
	}
}

// truncated reports whether the file has shrunk below the reader's
// position.
func (t *Follower) truncated() (bool, error) {
	pos, err := t.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	pos -= int64(t.reader.Buffered())

	info, err := t.file.Stat()
	if err != nil {
		return false, err
	}
	return info.Size() < pos, nil
}

// reopen replaces the descriptor and starts reading from the top of the
// file. A pending partial line from the old file is dropped and the
// position restarts at zero.
func (t *Follower) reopen() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", t.path, err)
	}
	t.file.Close()
	t.file = f
	t.reader.Reset(f)
	t.pending = t.pending[:0]
	t.read = 0
	t.logger.Info("followed file reopened", log.Str("path", t.path))
	return nil
}

// Close releases the watcher and the file.
func (t *Follower) Close() error {
	err := t.watcher.Close()
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	return err
}
