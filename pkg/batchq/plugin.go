package batchq

import (
	"context"

	"github.com/bft-labs/batchq/pkg/log"
)

// Plugin extends a Shipper with optional functionality. Plugins are
// initialized in registration order when the shipper starts and shut
// down in reverse order when it stops.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. The context is canceled when the
	// shipper stops; long-running plugin work belongs in goroutines
	// tied to it. Returning an error aborts the shipper's start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and releases its resources.
	Shutdown(ctx context.Context) error
}

// PluginConfig carries the shipper settings plugins may need.
type PluginConfig struct {
	// Follow is the followed file path, empty when reading a source or
	// standard input.
	Follow string

	// Stream is the configured stream tag.
	Stream string

	// StateDir is the state directory, empty when persistence is off.
	StateDir string

	// Logger is the shipper's logger.
	Logger log.Logger
}

// Gate is implemented by plugins that can hold deliveries back while
// the host is busy. Before each delivery the shipper checks every
// registered gate and waits, within a bound, until all report OK.
type Gate interface {
	OK() bool
}

// multiGate combines gates: delivery proceeds only when all agree.
type multiGate []Gate

func (m multiGate) OK() bool {
	for _, g := range m {
		if !g.OK() {
			return false
		}
	}
	return true
}
