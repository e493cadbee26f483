package cliconfig

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"BATCHQ_FOLLOW":         "/env/app.log",
				"BATCHQ_STREAM":         "env-stream",
				"BATCHQ_FLUSH_INTERVAL": "10m",
				"BATCHQ_BATCH_SIZE":     "42",
				"BATCHQ_ONCE":           "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Follow:        "/env/app.log",
				Stream:        "env-stream",
				FlushInterval: 10 * time.Minute,
				BatchSize:     42,
				Once:          true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"BATCHQ_FOLLOW": "/env/app.log",
				"BATCHQ_STREAM": "env-stream",
			},
			changed: map[string]bool{"follow": true},
			initial: Config{
				Follow: "/flag/app.log",
			},
			expected: Config{
				Follow: "/flag/app.log", // unchanged because flag was set
				Stream: "env-stream",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"BATCHQ_FLUSH_INTERVAL": "not-a-duration",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"BATCHQ_BATCH_SIZE": "not-a-number",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"BATCHQ_ONCE": "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Once: true,
			},
			wantErr: false,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"BATCHQ_ONCE": "false",
			},
			changed: map[string]bool{},
			initial: Config{Once: true},
			expected: Config{
				Once: false,
			},
			wantErr: false,
		},
		{
			name: "splits kafka brokers on commas",
			envVars: map[string]string{
				"BATCHQ_KAFKA_BROKERS": "k1:9092, k2:9092,k3:9092",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				KafkaBrokers: []string{"k1:9092", "k2:9092", "k3:9092"},
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"BATCHQ_FOLLOW":          "/var/log/app.log",
				"BATCHQ_STREAM":          "orders",
				"BATCHQ_OUTPUT":          "kafka",
				"BATCHQ_SERVICE_URL":     "http://example.com",
				"BATCHQ_AUTH_KEY":        "secret",
				"BATCHQ_KAFKA_BROKERS":   "k1:9092",
				"BATCHQ_KAFKA_TOPIC":     "events",
				"BATCHQ_BATCH_SIZE":      "500",
				"BATCHQ_MAX_BATCH_BYTES": "1024",
				"BATCHQ_FLUSH_INTERVAL":  "2m",
				"BATCHQ_HTTP_TIMEOUT":    "30s",
				"BATCHQ_SHIP_ATTEMPTS":   "5",
				"BATCHQ_METRICS_ADDR":    ":9402",
				"BATCHQ_LOG_LEVEL":       "debug",
				"BATCHQ_LOG_FORMAT":      "json",
				"BATCHQ_ONCE":            "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Follow:        "/var/log/app.log",
				Stream:        "orders",
				Output:        "kafka",
				ServiceURL:    "http://example.com",
				AuthKey:       "secret",
				KafkaBrokers:  []string{"k1:9092"},
				KafkaTopic:    "events",
				BatchSize:     500,
				MaxBatchBytes: 1024,
				FlushInterval: 2 * time.Minute,
				HTTPTimeout:   30 * time.Second,
				ShipAttempts:  5,
				MetricsAddr:   ":9402",
				LogLevel:      "debug",
				LogFormat:     "json",
				Once:          true,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			// Clean up after test
			defer func() {
				for k := range tt.envVars {
					os.Unsetenv(k)
				}
			}()

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
