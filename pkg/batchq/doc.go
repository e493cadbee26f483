// Package batchq provides an embeddable line shipper: it batches lines
// from a file, a reader, or a custom source and ships them to a sink.
//
// Lines accumulate in a buffer and are released as ordered batches when
// a size threshold, a byte budget, or a flush interval says so; a batch
// that cannot be delivered is retried with backoff and dropped once the
// attempt budget runs out. Batchq can be used as a standalone CLI
// application or embedded as a library in other Go programs.
//
// # Basic Usage
//
// To embed batchq in your application:
//
//	cfg := batchq.DefaultConfig()
//	cfg.Follow = "/var/log/app.log"
//	cfg.StateDir = "/var/lib/batchq"
//
//	shipper, err := batchq.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := shipper.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := shipper.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// For run-to-completion workloads, [Run] wraps New, Start, and the wait
// in one blocking call.
//
// # Configuration
//
// Create a [Config] with at least one flush trigger (BatchSize,
// MaxBatchBytes, or FlushInterval). [DefaultConfig] enables all three
// with moderate values. When Follow names a file and StateDir is set,
// the shipper persists the offset it has shipped up to and resumes
// there after a restart.
//
// # Sources and Sinks
//
// By default the shipper reads standard input and writes JSON batch
// envelopes to standard output. [WithSource] substitutes any line
// source, [SourceFromReader] adapts an io.Reader, and [WithSink]
// substitutes any sink.Sink[string], such as the HTTP and Kafka sinks
// in pkg/sink.
//
// # Event Handling
//
// To receive notifications about shipper operations, implement
// [EventHandler] and pass it via [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	shipper, err := batchq.New(cfg, batchq.WithEventHandler(handler))
//
// Events are called synchronously from the shipping goroutines.
// Implementations should return quickly to avoid blocking shipping.
//
// # Lifecycle States
//
// A Shipper can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed].
// Use [Shipper.Status] to query the current state. A shipper whose
// source reports end of input drains and moves to StateStopped on its
// own.
//
// # Plugins
//
// Batchq supports optional plugins for extended functionality:
//
//	import "github.com/bft-labs/batchq/plugins/configwatcher"
//	import "github.com/bft-labs/batchq/plugins/resourcegating"
//
//	shipper, err := batchq.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgPath}),
//	    resourcegating.WithResourceGating(resourcegating.DefaultConfig()),
//	)
//
// A plugin that implements [Gate] can hold deliveries back while the
// host is busy.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and
// [CompatibilityMatrix] to check minimum compatible versions. See
// version.go for details.
package batchq
