// Package batchq provides a line batching and shipping library.
//
// Lines pushed in one at a time accumulate into ordered batches that are
// released on a size threshold, a byte budget, or a flush interval, and
// shipped to a configurable sink. The generic batching core lives in
// pkg/batch; this root package re-exports the high-level shipper.
//
// Example usage:
//
//	cfg := batchq.DefaultConfig()
//	cfg.Follow = "/var/log/app.log"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := batchq.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
package batchq

import (
	"context"

	"github.com/bft-labs/batchq/pkg/batchq"
)

// Config holds the configuration for the line shipper.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = batchq.Config

// Option configures optional shipper behavior, such as the sink,
// logger, or plugins.
type Option = batchq.Option

// Run starts the shipper with the given configuration. It blocks until
// the source is exhausted or the context is cancelled.
// Use cfg.Once = true to read the followed file to its end and exit.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	return batchq.Run(ctx, cfg, opts...)
}

// DefaultConfig returns a Config with sensible default values. With no
// further settings the shipper batches standard input and writes JSON
// envelopes to standard output.
func DefaultConfig() Config {
	return batchq.DefaultConfig()
}
