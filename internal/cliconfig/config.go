// Package cliconfig loads and validates the batchq CLI configuration
// from flags, environment variables, and an optional TOML file, in that
// order of precedence.
package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultServiceURL is the default ingestion endpoint for the HTTP output.
const DefaultServiceURL = "https://api.batchq.io"

// Output destinations selectable with --output.
const (
	OutputStdout = "stdout"
	OutputHTTP   = "http"
	OutputKafka  = "kafka"
)

// Config holds CLI configuration for batchq.
type Config struct {
	Follow string
	Stream string

	Output     string
	ServiceURL string
	AuthKey    string

	KafkaBrokers []string
	KafkaTopic   string

	BatchSize     int
	MaxBatchBytes int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration

	ShipAttempts int

	StateDir string

	MetricsAddr string
	LogLevel    string
	LogFormat   string

	Once bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Stream:        "default",
		Output:        OutputStdout,
		ServiceURL:    DefaultServiceURL,
		BatchSize:     100,
		MaxBatchBytes: 1 << 20, // 1MB
		FlushInterval: 5 * time.Second,
		HTTPTimeout:   15 * time.Second,
		ShipAttempts:  3,
		LogLevel:      "info",
		LogFormat:     "console",
		AuthKey:       os.Getenv("BATCHQ_AUTH_KEY"),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputStdout, OutputHTTP, OutputKafka:
	default:
		return fmt.Errorf("unknown output %q (want stdout, http, or kafka)", c.Output)
	}

	if c.Output == OutputHTTP {
		if c.ServiceURL == "" {
			c.ServiceURL = DefaultServiceURL
		}
		// Ensure no trailing slash
		if len(c.ServiceURL) > 0 && c.ServiceURL[len(c.ServiceURL)-1] == '/' {
			c.ServiceURL = c.ServiceURL[:len(c.ServiceURL)-1]
		}
	}

	if c.Output == OutputKafka {
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka output requires at least one broker")
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("kafka output requires a topic")
		}
	}

	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative")
	}
	if c.MaxBatchBytes < 0 {
		return fmt.Errorf("max batch bytes must not be negative")
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush interval must not be negative")
	}
	if c.BatchSize == 0 && c.MaxBatchBytes == 0 && c.FlushInterval == 0 {
		return fmt.Errorf("at least one flush trigger is required (batch-size, max-batch-bytes, or flush-interval)")
	}

	if c.ShipAttempts < 1 {
		return fmt.Errorf("ship attempts must be at least 1")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}

	if c.Stream == "" {
		c.Stream = "default"
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a string-slice value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setStringsFromString splits a comma-separated list and sets the
// destination if non-empty. Used for environment variables.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
