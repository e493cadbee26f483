package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Follow        string   `toml:"follow"`
	Stream        string   `toml:"stream"`
	Output        string   `toml:"output"`
	ServiceURL    string   `toml:"service_url"`
	AuthKey       string   `toml:"auth_key"`
	KafkaBrokers  []string `toml:"kafka_brokers"`
	KafkaTopic    string   `toml:"kafka_topic"`
	BatchSize     int      `toml:"batch_size"`
	MaxBatchBytes int      `toml:"max_batch_bytes"`
	FlushInterval string   `toml:"flush_interval"`
	HTTPTimeout   string   `toml:"http_timeout"`
	ShipAttempts  int      `toml:"ship_attempts"`
	StateDir      string   `toml:"state_dir"`
	MetricsAddr   string   `toml:"metrics_addr"`
	LogLevel      string   `toml:"log_level"`
	LogFormat     string   `toml:"log_format"`
	Once          *bool    `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.batchq/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".batchq", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("follow", fc.Follow, &cfg.Follow)
	s.setString("stream", fc.Stream, &cfg.Stream)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("kafka-topic", fc.KafkaTopic, &cfg.KafkaTopic)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setStrings("kafka-brokers", fc.KafkaBrokers, &cfg.KafkaBrokers)

	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("max-batch-bytes", fc.MaxBatchBytes, &cfg.MaxBatchBytes)
	s.setInt("ship-attempts", fc.ShipAttempts, &cfg.ShipAttempts)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
