package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/batchq/internal/cliconfig"
	"github.com/bft-labs/batchq/internal/metricsrv"
	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/log"
	"github.com/bft-labs/batchq/pkg/sink"
	"github.com/bft-labs/batchq/plugins/configwatcher"
	"github.com/bft-labs/batchq/plugins/resourcegating"
)

const helpDescription = `
Batch lines from standard input or a followed file and ship them in groups.

Highlights:
  - Releases batches on a line count, a byte budget, or a flush interval.
  - Ships to stdout, an HTTP endpoint, or a Kafka topic with bounded retries.
  - Follows growing files and resumes from the last shipped offset.
  - Configure via flags, BATCHQ_* environment variables, or a TOML file.
`

var exampleUsage = strings.TrimSpace(`
  tail -f /var/log/app.log | batchq --batch-size 500
  batchq --follow /var/log/app.log --state-dir ~/.batchq/state --output http --auth-key <api-key>
  batchq --config $HOME/.batchq/config.toml --once
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "batchq",
		Short:   "Batch lines from stdin or a file and ship them in groups",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Config file first (default $HOME/.batchq/config.toml), then
			// env, with explicitly set flags winning over both.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			fileLoaded := false
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				fileLoaded = true
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := cliconfig.BuildLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			logger.Info("configuration loaded",
				log.Str("output", logCfg.Output),
				log.Str("follow", logCfg.Follow),
				log.Int("batch_size", logCfg.BatchSize),
				log.Int("max_batch_bytes", logCfg.MaxBatchBytes),
				log.Dur("flush_interval", logCfg.FlushInterval),
			)

			snk, err := buildSink(cfg, logger)
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var msrv *metricsrv.Server
			if cfg.MetricsAddr != "" {
				registry.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				msrv = metricsrv.New(cfg.MetricsAddr, registry, logger)
				go func() {
					if err := msrv.Serve(); err != nil {
						logger.Error("metrics server failed", log.Err(err))
					}
				}()
			}

			libCfg := batchq.Config{
				Follow:        cfg.Follow,
				Stream:        cfg.Stream,
				BatchSize:     cfg.BatchSize,
				MaxBatchBytes: cfg.MaxBatchBytes,
				FlushInterval: cfg.FlushInterval,
				ShipAttempts:  cfg.ShipAttempts,
				StateDir:      cfg.StateDir,
				Once:          cfg.Once,
			}

			opts := []batchq.Option{
				batchq.WithLogger(logger),
				batchq.WithSink(snk),
				batchq.WithRegisterer(registry),
				resourcegating.WithResourceGating(resourcegating.DefaultConfig()),
			}
			if fileLoaded {
				opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
					Path: cfgFile,
				}))
			}

			runErr := batchq.Run(ctx, libCfg, opts...)

			if msrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := msrv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("metrics server shutdown failed", log.Err(err))
				}
			}

			return runErr
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.batchq/config.toml)")
	root.Flags().StringVar(&cfg.Follow, "follow", cfg.Follow, "file to follow instead of reading stdin")
	root.Flags().StringVar(&cfg.Stream, "stream", cfg.Stream, "stream name attached to shipped batches")

	root.Flags().StringVar(&cfg.Output, "output", cfg.Output, "batch destination: stdout, http, or kafka")
	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, fmt.Sprintf("base service URL for the http output (defaults to %s)", cliconfig.DefaultServiceURL))
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for the http output")
	root.Flags().StringSliceVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "kafka bootstrap brokers for the kafka output")
	root.Flags().StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "kafka topic for the kafka output")

	root.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "release a batch at this many lines (0 disables)")
	root.Flags().IntVar(&cfg.MaxBatchBytes, "max-batch-bytes", cfg.MaxBatchBytes, "release a batch at this many line bytes (0 disables)")
	root.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "release a batch after this long without one (0 disables)")
	root.Flags().IntVar(&cfg.ShipAttempts, "ship-attempts", cfg.ShipAttempts, "delivery attempts per batch before dropping it")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for the http output")

	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for the resume offset when following a file")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve /metrics on (empty disables)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, or error")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "read the followed file to its end and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "batchq: %v\n", err)
		os.Exit(1)
	}
}

// buildSink resolves the configured output into a sink.
func buildSink(cfg cliconfig.Config, logger log.Logger) (sink.Sink[string], error) {
	switch cfg.Output {
	case cliconfig.OutputStdout:
		return sink.NewWriter[string](os.Stdout, logger), nil
	case cliconfig.OutputHTTP:
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		return sink.NewHTTP[string](client, sink.HTTPConfig{
			ServiceURL: cfg.ServiceURL,
			AuthKey:    cfg.AuthKey,
			Stream:     cfg.Stream,
		}, logger), nil
	case cliconfig.OutputKafka:
		return sink.NewKafka[string](sink.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Stream:  cfg.Stream,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown output %q", cfg.Output)
	}
}
