package batchq

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/batchq/pkg/clock"
	"github.com/bft-labs/batchq/pkg/log"
	"github.com/bft-labs/batchq/pkg/sink"
)

// Option configures optional behavior of a Shipper.
type Option func(*options)

// options holds the optional configuration for a Shipper instance.
type options struct {
	logger       log.Logger
	snk          sink.Sink[string]
	source       Source
	eventHandler EventHandler
	registerer   prometheus.Registerer
	clk          clock.Clock
	plugins      []Plugin
}

// defaultOptions returns options with sensible defaults. The sink
// default is resolved later, once the logger is known.
func defaultOptions() options {
	return options{
		logger: log.Nop(),
		clk:    clock.System,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSink sets the destination for shipped batches.
// If not provided, batches are written to standard output as JSON.
func WithSink(s sink.Sink[string]) Option {
	return func(o *options) {
		o.snk = s
	}
}

// WithSource sets a custom line source, overriding Config.Follow and
// the standard input default.
func WithSource(src Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithEventHandler sets a handler for shipper events.
// Events are called synchronously from the shipping goroutines.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithRegisterer sets the prometheus registerer the shipper's metrics
// are registered on. If not provided, a private registry is used, which
// keeps the metrics out of the default registry unless asked for.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithClock substitutes the clock that drives timed flushes. Tests pass
// a clock.Fake to control time.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		if clk != nil {
			o.clk = clk
		}
	}
}

// WithPlugin registers a plugin to be initialized when the shipper
// starts. Plugins are initialized in registration order and shut down
// in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
