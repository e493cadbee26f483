package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (BATCHQ_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("follow", os.Getenv("BATCHQ_FOLLOW"), &cfg.Follow)
	s.setString("stream", os.Getenv("BATCHQ_STREAM"), &cfg.Stream)
	s.setString("output", os.Getenv("BATCHQ_OUTPUT"), &cfg.Output)
	s.setString("service-url", os.Getenv("BATCHQ_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", os.Getenv("BATCHQ_AUTH_KEY"), &cfg.AuthKey)
	s.setString("kafka-topic", os.Getenv("BATCHQ_KAFKA_TOPIC"), &cfg.KafkaTopic)
	s.setString("state-dir", os.Getenv("BATCHQ_STATE_DIR"), &cfg.StateDir)
	s.setString("metrics-addr", os.Getenv("BATCHQ_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("BATCHQ_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("BATCHQ_LOG_FORMAT"), &cfg.LogFormat)

	s.setStringsFromString("kafka-brokers", os.Getenv("BATCHQ_KAFKA_BROKERS"), &cfg.KafkaBrokers)

	if err := s.setDuration("flush-interval", os.Getenv("BATCHQ_FLUSH_INTERVAL"), &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", os.Getenv("BATCHQ_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("batch-size", os.Getenv("BATCHQ_BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-bytes", os.Getenv("BATCHQ_MAX_BATCH_BYTES"), &cfg.MaxBatchBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("ship-attempts", os.Getenv("BATCHQ_SHIP_ATTEMPTS"), &cfg.ShipAttempts); err != nil {
		return err
	}

	s.setBoolFromString("once", os.Getenv("BATCHQ_ONCE"), &cfg.Once)

	return nil
}
