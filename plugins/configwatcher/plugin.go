// Package configwatcher watches the TOML config file a batchq process
// started with and logs edits that will take effect on the next
// restart. It catches the usual operational mistake of editing the file
// and forgetting that the running process never re-reads it.
package configwatcher

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/batchq/internal/cliconfig"
	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/log"
)

// Plugin implements config file watching. It monitors the config file
// the process was started with and, on every change, reports the keys
// that now differ from the running configuration.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	baseline cliconfig.FileConfig
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch. Required.
	Path string

	// DebounceDelay is how long to wait after a file change before
	// re-reading, so editors that write in several steps report once.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with default settings. Path must still
// be set by the caller.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a config watcher plugin for the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the startup config as the comparison baseline and
// starts the watcher loop.
func (p *Plugin) Initialize(ctx context.Context, cfg batchq.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	p.mu.Lock()
	p.logger = logger
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config file path")
		return nil
	}

	baseline, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		// The process started with this file, so failing to read it now
		// is worth surfacing, but not worth aborting the shipper over.
		p.logger.Warn("config watcher disabled: cannot read config file",
			log.Str("path", p.path), log.Err(err))
		return nil
	}
	p.mu.Lock()
	p.baseline = baseline
	p.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher initialized", log.Str("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the watcher loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// watchLoop waits for filesystem events on the config file. The parent
// directory is watched so editors that replace the file are seen too.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("config watcher: failed to create watcher", log.Err(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		p.logger.Error("config watcher: failed to watch directory", log.Err(err))
		return
	}

	target := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceCheck()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

// debounceCheck coalesces a burst of write events into one re-read.
func (p *Plugin) debounceCheck() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, p.check)
}

// check re-reads the config file and reports how it deviates from the
// configuration the process is running with.
func (p *Plugin) check() {
	current, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Error("config file edited but does not parse",
			log.Str("path", p.path), log.Err(err))
		return
	}

	p.mu.Lock()
	baseline := p.baseline
	p.mu.Unlock()

	changed := changedKeys(baseline, current)
	if len(changed) == 0 {
		p.logger.Info("config file rewritten without effective changes",
			log.Str("path", p.path))
		return
	}
	p.logger.Warn("config file changed, restart to apply",
		log.Str("path", p.path),
		log.Any("keys", changed))
}

// changedKeys lists the TOML keys whose values differ between a and b.
func changedKeys(a, b cliconfig.FileConfig) []string {
	var keys []string
	add := func(key string, differs bool) {
		if differs {
			keys = append(keys, key)
		}
	}

	add("follow", a.Follow != b.Follow)
	add("stream", a.Stream != b.Stream)
	add("output", a.Output != b.Output)
	add("service_url", a.ServiceURL != b.ServiceURL)
	add("auth_key", a.AuthKey != b.AuthKey)
	add("kafka_brokers", !slices.Equal(a.KafkaBrokers, b.KafkaBrokers))
	add("kafka_topic", a.KafkaTopic != b.KafkaTopic)
	add("batch_size", a.BatchSize != b.BatchSize)
	add("max_batch_bytes", a.MaxBatchBytes != b.MaxBatchBytes)
	add("flush_interval", a.FlushInterval != b.FlushInterval)
	add("http_timeout", a.HTTPTimeout != b.HTTPTimeout)
	add("ship_attempts", a.ShipAttempts != b.ShipAttempts)
	add("state_dir", a.StateDir != b.StateDir)
	add("metrics_addr", a.MetricsAddr != b.MetricsAddr)
	add("log_level", a.LogLevel != b.LogLevel)
	add("log_format", a.LogFormat != b.LogFormat)
	add("once", !equalBoolPtr(a.Once, b.Once))

	return keys
}

func equalBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Ensure Plugin implements batchq.Plugin.
var _ batchq.Plugin = (*Plugin)(nil)
