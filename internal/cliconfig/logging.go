package cliconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/batchq/pkg/log"
)

// BuildLogger constructs the CLI logger from the configured level and
// format. Format "console" writes human-readable lines, "json" writes
// raw zerolog JSON. Both go to stderr so batch output on stdout stays
// clean.
func BuildLogger(level, format string) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zl zerolog.Logger
	switch format {
	case "console", "":
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		zl = zerolog.New(out)
	case "json":
		zl = zerolog.New(os.Stderr)
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", format)
	}

	zl = zl.Level(lvl).With().Timestamp().Logger()
	return log.NewZerolog(zl), nil
}
