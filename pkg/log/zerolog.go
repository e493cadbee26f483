package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Zerolog implements Logger on top of a zerolog.Logger.
type Zerolog struct {
	zl zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(zl zerolog.Logger) *Zerolog {
	return &Zerolog{zl: zl}
}

// NewConsole creates a Zerolog writing human-readable output to stderr.
func NewConsole() *Zerolog {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return &Zerolog{zl: zerolog.New(output).With().Timestamp().Logger()}
}

// Debug logs a debug-level message.
func (z *Zerolog) Debug(msg string, fields ...Field) {
	z.emit(z.zl.Debug(), msg, fields)
}

// Info logs an info-level message.
func (z *Zerolog) Info(msg string, fields ...Field) {
	z.emit(z.zl.Info(), msg, fields)
}

// Warn logs a warning-level message.
func (z *Zerolog) Warn(msg string, fields ...Field) {
	z.emit(z.zl.Warn(), msg, fields)
}

// Error logs an error-level message.
func (z *Zerolog) Error(msg string, fields ...Field) {
	z.emit(z.zl.Error(), msg, fields)
}

// Logger returns the underlying zerolog.Logger.
func (z *Zerolog) Logger() zerolog.Logger {
	return z.zl
}

func (z *Zerolog) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		event = field(event, f)
	}
	event.Msg(msg)
}

// field translates one Field onto a zerolog.Event.
func field(event *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case int64:
		return event.Int64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case error:
		return event.Err(v)
	default:
		return event.Interface(f.Key, v)
	}
}
