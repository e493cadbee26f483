package batchq

import (
	"fmt"
	"time"
)

// Config holds the configuration for a Shipper.
type Config struct {
	// Follow is the path of a line-oriented file to follow. Empty means
	// the shipper reads the source given with WithSource, or standard
	// input when none is given.
	Follow string

	// Stream tags shipped batches so the destination can tell sources
	// apart. Defaults to "default".
	Stream string

	// BatchSize releases a batch when it holds this many lines.
	// Zero disables the size trigger.
	BatchSize int

	// MaxBatchBytes releases a batch when its accumulated line bytes
	// reach this budget. Zero disables the byte trigger.
	MaxBatchBytes int

	// FlushInterval releases whatever has accumulated when this long
	// passes without any release. Zero disables the timer.
	FlushInterval time.Duration

	// ShipAttempts is the number of delivery attempts per batch before
	// it is dropped.
	ShipAttempts int

	// StateDir is where the resume offset is persisted between runs.
	// Empty disables persistence. It only applies when Follow is set.
	StateDir string

	// Once reads the followed file from the resume offset to its
	// current end and stops instead of waiting for more data.
	Once bool
}

// DefaultConfig returns a Config with default values. Follow is left
// empty, so the default shipper batches standard input.
func DefaultConfig() Config {
	return Config{
		Stream:        "default",
		BatchSize:     100,
		MaxBatchBytes: 1 << 20, // 1MB
		FlushInterval: 5 * time.Second,
		ShipAttempts:  3,
	}
}

// SetDefaults fills in zero-valued fields that have defaults. Trigger
// fields are left alone: all three at zero is a validation error, not a
// request for defaults.
func (c *Config) SetDefaults() {
	if c.Stream == "" {
		c.Stream = "default"
	}
	if c.ShipAttempts == 0 {
		c.ShipAttempts = 3
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative, got %d", c.BatchSize)
	}
	if c.MaxBatchBytes < 0 {
		return fmt.Errorf("max batch bytes must not be negative, got %d", c.MaxBatchBytes)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush interval must not be negative, got %s", c.FlushInterval)
	}
	if c.BatchSize == 0 && c.MaxBatchBytes == 0 && c.FlushInterval == 0 {
		return fmt.Errorf("at least one flush trigger is required (BatchSize, MaxBatchBytes, or FlushInterval)")
	}
	if c.ShipAttempts < 1 {
		return fmt.Errorf("ship attempts must be at least 1, got %d", c.ShipAttempts)
	}
	if c.Once && c.Follow == "" {
		return fmt.Errorf("once requires a file to follow")
	}
	return nil
}
