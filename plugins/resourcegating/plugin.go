// Package resourcegating provides load-based delivery gating for
// batchq. When the host looks busy, the plugin's gate reports not-OK
// and the shipper holds batch deliveries back for a bounded time.
package resourcegating

import (
	"context"
	"runtime"
	"sync"

	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/log"
)

// Plugin implements delivery gating. It estimates host load from the
// goroutine count relative to the CPU count; the shipper consults OK
// before each delivery.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	goroutinesPerCPU int

	// Runtime state
	logger log.Logger
}

// Config holds configuration options for the resource gating plugin.
type Config struct {
	// GoroutinesPerCPU is the goroutine-to-CPU ratio above which the
	// gate closes. Default: 100
	GoroutinesPerCPU int
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() Config {
	return Config{
		GoroutinesPerCPU: 100,
	}
}

// New creates a resource gating plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.GoroutinesPerCPU <= 0 {
		cfg.GoroutinesPerCPU = 100
	}
	return &Plugin{
		goroutinesPerCPU: cfg.GoroutinesPerCPU,
		logger:           log.Nop(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "resourcegating"
}

// Initialize records the shipper's logger.
func (p *Plugin) Initialize(ctx context.Context, cfg batchq.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	p.logger.Info("resource gating plugin initialized",
		log.Int("goroutines_per_cpu", p.goroutinesPerCPU))
	return nil
}

// Shutdown releases plugin resources.
func (p *Plugin) Shutdown(ctx context.Context) error {
	return nil
}

// OK reports whether host load allows a delivery. The goroutine count
// is a rough stand-in for real load; hosts that need precision should
// implement their own gate from /proc/stat or equivalent.
func (p *Plugin) OK() bool {
	p.mu.RLock()
	ratio := p.goroutinesPerCPU
	logger := p.logger
	p.mu.RUnlock()

	goroutines := runtime.NumGoroutine()
	limit := runtime.NumCPU() * ratio
	if goroutines > limit {
		logger.Debug("delivery gate closed",
			log.Int("goroutines", goroutines),
			log.Int("limit", limit))
		return false
	}
	return true
}

// Ensure Plugin implements batchq.Plugin and batchq.Gate.
var (
	_ batchq.Plugin = (*Plugin)(nil)
	_ batchq.Gate   = (*Plugin)(nil)
)
