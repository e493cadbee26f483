package batchq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/batchq/internal/pipeline"
	"github.com/bft-labs/batchq/internal/tail"
	"github.com/bft-labs/batchq/pkg/alarm"
	"github.com/bft-labs/batchq/pkg/batch"
	"github.com/bft-labs/batchq/pkg/clock"
	"github.com/bft-labs/batchq/pkg/event"
	"github.com/bft-labs/batchq/pkg/lifecycle"
	"github.com/bft-labs/batchq/pkg/log"
	"github.com/bft-labs/batchq/pkg/sink"
	"github.com/bft-labs/batchq/pkg/state"
)

// ErrCrashed is returned by Run when the shipper ends up in
// StateCrashed instead of stopping cleanly.
var ErrCrashed = errors.New("batchq: shipper crashed")

// Shipper batches lines from a source and ships them to a sink. Use
// New to create an instance, then Start to begin shipping.
type Shipper struct {
	config Config
	opts   options
	logger log.Logger
	snk    sink.Sink[string]

	lifecycle *lifecycle.DefaultManager
	emitter   eventEmitterWrapper
	plugins   []Plugin

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	run    *runState
}

// runState holds the resources of one Start-to-Stop cycle. The once
// guards let the worker and Stop race to release them safely.
type runState struct {
	closer     io.Closer
	closeOnce  sync.Once
	pluginOnce sync.Once
}

// New creates a new Shipper with the given configuration.
// The instance is created in StateStopped; call Start to begin.
// Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Shipper, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if o.snk == nil {
		o.snk = sink.NewWriter[string](os.Stdout, logger)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	s := &Shipper{
		config:  cfg,
		opts:    o,
		logger:  logger,
		snk:     o.snk,
		plugins: o.plugins,
	}
	s.emitter = eventEmitterWrapper{handler: o.eventHandler}
	s.lifecycle = lifecycle.NewManager(logger, &s.emitter)
	return s, nil
}

// Start begins shipping in the background and returns once the worker
// goroutine is launched. Returns an error if the shipper is already
// running or startup fails. The context bounds the whole shipping run;
// canceling it drains, releases the source and plugins, and lands in
// StateStopped like Stop does, minus the bounded wait.
func (s *Shipper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return lifecycle.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	src, closer, repo, st, err := s.openSource(runCtx)
	if err != nil {
		s.logger.Error("failed to open source", log.Err(err))
		cancel()
		_ = s.lifecycle.TransitionTo(StateCrashed, "source open failed")
		return err
	}

	run := &runState{closer: closer}
	s.run = run

	pluginCfg := PluginConfig{
		Follow:   s.config.Follow,
		Stream:   s.config.Stream,
		StateDir: s.config.StateDir,
		Logger:   s.logger,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.Str("plugin", p.Name()),
				log.Err(err))
			cancel()
			for j := i - 1; j >= 0; j-- {
				_ = s.plugins[j].Shutdown(context.Background())
			}
			s.closeSource(run)
			_ = s.lifecycle.TransitionTo(StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", log.Str("plugin", p.Name()))
	}

	gate := s.deliveryGate()
	if gate != nil {
		s.logger.Info("delivery gating enabled")
	}

	pl, err := pipeline.New(pipeline.Config{
		BatchSize:     s.config.BatchSize,
		MaxBatchBytes: s.config.MaxBatchBytes,
		FlushInterval: s.config.FlushInterval,
		ShipAttempts:  s.config.ShipAttempts,
	}, src, s.snk, pipeline.Options{
		Logger:     s.logger,
		Clock:      s.opts.clk,
		Emitter:    &s.emitter,
		Gate:       gate,
		StateRepo:  repo,
		State:      st,
		Registerer: s.opts.registerer,
	})
	if err != nil {
		s.logger.Error("failed to build pipeline", log.Err(err))
		cancel()
		s.closeSource(run)
		s.shutdownPlugins(run)
		_ = s.lifecycle.TransitionTo(StateCrashed, "pipeline build failed")
		return err
	}

	s.lifecycle.AddWorker()
	go func() {
		defer s.lifecycle.WorkerDone()

		if err := s.lifecycle.TransitionTo(StateRunning, "pipeline starting"); err != nil {
			s.logger.Error("failed to transition to running", log.Err(err))
			return
		}

		err := pl.Run(runCtx)
		switch {
		case err == nil:
			s.finish(run, "source exhausted")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Stop cancels runCtx too; finish yields to it because Stop
			// has already moved the state machine past Running.
			s.finish(run, "context canceled")
		default:
			s.logger.Error("pipeline error", log.Err(err))
			s.closeSource(run)
			s.shutdownPlugins(run)
			_ = s.lifecycle.TransitionTo(StateCrashed, err.Error())
		}
	}()

	return nil
}

// Stop gracefully shuts down the shipper. Buffered lines are drained to
// the sink and the resume state is persisted. Waits up to
// lifecycle.ShutdownTimeout before forcing shutdown; returns nil on a
// graceful stop and lifecycle.ErrShutdownTimeout when forced.
func (s *Shipper) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return lifecycle.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	run := s.run
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout)

	if run != nil {
		s.closeSource(run)
		s.shutdownPlugins(run)
	}

	if err != nil {
		_ = s.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Shipper) Status() State {
	return s.lifecycle.State()
}

// finish winds the shipper down after the pipeline returns on its own,
// because the source ran dry or the run context was canceled. Stop
// takes precedence when the two race.
func (s *Shipper) finish(run *runState, reason string) {
	s.mu.Lock()
	if s.lifecycle.State() != StateRunning {
		s.mu.Unlock()
		return
	}
	_ = s.lifecycle.TransitionTo(StateStopping, reason)
	s.mu.Unlock()

	s.closeSource(run)
	s.shutdownPlugins(run)
	_ = s.lifecycle.TransitionTo(StateStopped, reason)
}

// openSource resolves the line source for this run: an injected Source,
// the followed file, or standard input. For follows it also loads the
// persisted resume state.
func (s *Shipper) openSource(ctx context.Context) (pipeline.Source, io.Closer, state.Repository, state.State, error) {
	if s.opts.source != nil {
		return s.opts.source, nil, nil, state.State{}, nil
	}
	if s.config.Follow == "" {
		return pipeline.NewReaderSource(os.Stdin), nil, nil, state.State{}, nil
	}

	repo, st := s.loadResume(ctx)

	if s.config.Once {
		f, err := os.Open(s.config.Follow)
		if err != nil {
			return nil, nil, nil, state.State{}, err
		}
		offset := st.Offset
		if offset > 0 {
			info, statErr := f.Stat()
			if statErr != nil || offset > info.Size() {
				offset = 0
			}
		}
		st.Offset = offset
		if offset > 0 {
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				f.Close()
				return nil, nil, nil, state.State{}, err
			}
			return pipeline.NewReaderSourceAt(f, offset), f, repo, st, nil
		}
		return pipeline.NewReaderSource(f), f, repo, st, nil
	}

	follower, err := tail.NewFollowerAt(s.config.Follow, st.Offset, s.logger)
	if err != nil {
		return nil, nil, nil, state.State{}, err
	}
	return follower, follower, repo, st, nil
}

// loadResume loads the saved shipping state for the followed file. A
// missing, unreadable, or mismatching state falls back to a fresh one.
func (s *Shipper) loadResume(ctx context.Context) (state.Repository, state.State) {
	fresh := state.State{Path: s.config.Follow}
	if s.config.StateDir == "" {
		return nil, fresh
	}

	repo := state.NewFileRepository(s.config.StateDir)
	loaded, err := repo.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to load state, starting fresh", log.Err(err))
		return repo, fresh
	}
	if loaded.IsEmpty() || loaded.Path != s.config.Follow {
		return repo, fresh
	}
	s.logger.Info("resuming follow",
		log.Str("path", loaded.Path),
		log.Int64("offset", loaded.Offset))
	return repo, loaded
}

// deliveryGate combines the gates exposed by registered plugins.
func (s *Shipper) deliveryGate() pipeline.Gate {
	var gates multiGate
	for _, p := range s.plugins {
		if g, ok := p.(Gate); ok {
			gates = append(gates, g)
		}
	}
	switch len(gates) {
	case 0:
		return nil
	case 1:
		return gates[0]
	default:
		return gates
	}
}

// closeSource closes this run's source exactly once.
func (s *Shipper) closeSource(run *runState) {
	run.closeOnce.Do(func() {
		if run.closer == nil {
			return
		}
		if err := run.closer.Close(); err != nil {
			s.logger.Warn("failed to close source", log.Err(err))
		}
	})
}

// shutdownPlugins shuts the plugins down in reverse registration order,
// exactly once per run.
func (s *Shipper) shutdownPlugins(run *runState) {
	run.pluginOnce.Do(func() {
		ctx := context.Background()
		for i := len(s.plugins) - 1; i >= 0; i-- {
			p := s.plugins[i]
			if err := p.Shutdown(ctx); err != nil {
				s.logger.Error("plugin shutdown failed",
					log.Str("plugin", p.Name()),
					log.Err(err))
			} else {
				s.logger.Info("plugin shutdown complete", log.Str("plugin", p.Name()))
			}
		}
	})
}

// Run is the blocking convenience form: it creates a Shipper, starts
// it, and waits until the source is exhausted or ctx is canceled. A
// canceled context stops the shipper gracefully.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	s, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			err := s.Stop()
			if errors.Is(err, lifecycle.ErrNotRunning) {
				// The worker finished on its own before Stop ran.
				if s.Status() == StateCrashed {
					return ErrCrashed
				}
				return nil
			}
			return err
		case <-ticker.C:
			switch s.Status() {
			case StateStopped:
				return nil
			case StateCrashed:
				return ErrCrashed
			}
		}
	}
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"batch":     {batch.Version, batch.MinCompatibleVersion},
		"alarm":     {alarm.Version, alarm.MinCompatibleVersion},
		"clock":     {clock.Version, clock.MinCompatibleVersion},
		"event":     {event.Version, event.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
		"sink":      {sink.Version, sink.MinCompatibleVersion},
		"state":     {state.Version, state.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
