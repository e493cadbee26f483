// Package pipeline runs the read-batch-ship loop: lines come in from a
// Source, accumulate in a batcher under the configured release policies,
// and leave through a sink with bounded retries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/batchq/pkg/batch"
	"github.com/bft-labs/batchq/pkg/clock"
	"github.com/bft-labs/batchq/pkg/log"
	"github.com/bft-labs/batchq/pkg/sink"
	"github.com/bft-labs/batchq/pkg/state"
)

// Release trigger labels reported on batch metrics and logs.
const (
	triggerSize     = "size"
	triggerBytes    = "bytes"
	triggerInterval = "interval"
	triggerDrain    = "drain"
)

const (
	// DefaultShipAttempts is the delivery attempt budget per batch.
	DefaultShipAttempts = 3

	// drainTimeout bounds shipping that happens after the run context
	// is already canceled. It stays under the facade's shutdown wait.
	drainTimeout = 15 * time.Second

	// gatePollInterval and gateMaxWait bound how long a closed gate can
	// hold a released batch before it ships anyway.
	gatePollInterval = 250 * time.Millisecond
	gateMaxWait      = 30 * time.Second
)

// Config contains tunables for the shipping pipeline. At least one of
// BatchSize, MaxBatchBytes, or FlushInterval must be set.
type Config struct {
	// BatchSize releases a batch when it holds this many lines.
	// Zero disables the size trigger.
	BatchSize int

	// MaxBatchBytes releases a batch when its accumulated line bytes
	// reach this budget. Zero disables the byte trigger.
	MaxBatchBytes int

	// FlushInterval releases whatever has accumulated when this long
	// passes without any release. Zero disables the timer.
	FlushInterval time.Duration

	// ShipAttempts is the number of delivery attempts per batch before
	// it is dropped. Zero means DefaultShipAttempts.
	ShipAttempts int

	// BackoffInitial and BackoffMax bound the retry backoff. Zero
	// means the package defaults.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Options are optional collaborators for a pipeline.
type Options struct {
	Logger     log.Logger
	Clock      clock.Clock
	Emitter    ShipEventEmitter
	Gate       Gate
	StateRepo  state.Repository
	State      state.State
	Registerer prometheus.Registerer
}

// ShipEventEmitter is called on ship success or failure.
type ShipEventEmitter interface {
	OnShipSuccess(lines int, duration time.Duration)
	OnShipError(err error, lines int, retryable bool)
}

// record is a buffered line plus the source offset just past it. The
// offset is zero when the source cannot report positions.
type record struct {
	line string
	end  int64
}

// Pipeline reads lines from a source, accumulates them into batches,
// and ships released batches to a sink.
type Pipeline struct {
	cfg     Config
	src     Source
	snk     sink.Sink[string]
	logger  log.Logger
	clk     clock.Clock
	emitter ShipEventEmitter
	gate    Gate
	repo    state.Repository
	metrics *metrics

	batcher *batch.Batcher[record]

	mu           sync.Mutex
	pendingBytes int
	trigger      string
	runCtx       context.Context

	shipMu sync.Mutex
	st     state.State
}

// New wires a pipeline: release policies on the batcher per cfg, byte
// accounting on push, and shipping on flush.
func New(cfg Config, src Source, snk sink.Sink[string], opts Options) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("pipeline: source is required")
	}
	if snk == nil {
		return nil, errors.New("pipeline: sink is required")
	}
	if cfg.BatchSize == 0 && cfg.MaxBatchBytes == 0 && cfg.FlushInterval == 0 {
		return nil, errors.New("pipeline: at least one of batch size, byte budget, or flush interval is required")
	}
	if cfg.MaxBatchBytes < 0 {
		return nil, fmt.Errorf("pipeline: byte budget must not be negative, got %d", cfg.MaxBatchBytes)
	}
	if cfg.ShipAttempts == 0 {
		cfg.ShipAttempts = DefaultShipAttempts
	}
	if cfg.ShipAttempts < 1 {
		return nil, fmt.Errorf("pipeline: ship attempts must be at least 1, got %d", cfg.ShipAttempts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System
	}

	b := batch.New[record](batch.WithLogger[record](logger), batch.WithClock[record](clk))
	p := &Pipeline{
		cfg:     cfg,
		src:     src,
		snk:     snk,
		logger:  logger,
		clk:     clk,
		emitter: opts.Emitter,
		gate:    opts.Gate,
		repo:    opts.StateRepo,
		batcher: b,
		st:      opts.State,
	}
	p.metrics = newMetrics(opts.Registerer, func() float64 {
		return float64(b.Len())
	})

	// Byte accounting must see each line before the policies do.
	b.OnPush(func(r record) {
		p.mu.Lock()
		p.pendingBytes += len(r.line)
		p.mu.Unlock()
		p.metrics.linesRead.Inc()
	})

	if cfg.MaxBatchBytes > 0 {
		b.FlushWhen(func(*batch.Batcher[record]) bool {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.pendingBytes < cfg.MaxBatchBytes {
				return false
			}
			p.trigger = triggerBytes
			return true
		})
	}
	if cfg.BatchSize != 0 {
		if err := b.FlushAtSize(cfg.BatchSize); err != nil {
			return nil, err
		}
	}
	if cfg.FlushInterval != 0 {
		if err := b.FlushEvery(cfg.FlushInterval, batch.SkipEmpty()); err != nil {
			return nil, err
		}
	}

	// Shipping subscribes last so the interval countdown rearms before
	// a slow delivery starts.
	b.OnFlush(p.ship)

	return p, nil
}

// readResult is one source read handed from the reader goroutine to
// the batching loop.
type readResult struct {
	line string
	end  int64
	err  error
}

// Run executes the read loop until the source is exhausted or ctx is
// canceled. Whatever is still buffered is drained before it returns.
// Reads run on their own goroutine so cancellation is honored even when
// the source blocks in a plain Read, as standard input does.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	p.runCtx = ctx
	p.mu.Unlock()
	defer p.batcher.Close()

	pos, _ := p.src.(Positioner)
	reads := make(chan readResult)
	go func() {
		defer close(reads)
		for {
			line, err := p.src.Next(ctx)
			res := readResult{line: line, err: err}
			if err == nil && pos != nil {
				res.end = pos.Position()
			}
			select {
			case reads <- res:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return ctx.Err()

		case res, ok := <-reads:
			if !ok {
				// The reader bailed out on cancellation.
				p.drain()
				return ctx.Err()
			}
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					p.logger.Debug("source exhausted")
					p.drain()
					return nil
				}
				if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
					p.drain()
					return res.err
				}
				p.metrics.readErrors.Inc()
				p.logger.Error("read error", log.Err(res.err))
				p.drain()
				return res.err
			}
			p.batcher.Push(record{line: res.line, end: res.end})
		}
	}
}

// drain stops the timers and releases whatever is still buffered.
func (p *Pipeline) drain() {
	p.batcher.Close()
	if p.batcher.IsEmpty() {
		return
	}
	p.mu.Lock()
	p.trigger = triggerDrain
	p.mu.Unlock()
	p.batcher.Flush()
}

// ship delivers a released batch to the sink, retrying with backoff up
// to the attempt budget and dropping the batch when that runs out.
// Deliveries are serialized; a timer release waits for an in-flight one.
func (p *Pipeline) ship(items []record) {
	released := 0
	for _, r := range items {
		released += len(r.line)
	}

	p.mu.Lock()
	p.pendingBytes -= released
	trigger := p.trigger
	p.trigger = ""
	ctx := p.runCtx
	p.mu.Unlock()

	if len(items) == 0 {
		return
	}
	if trigger == "" {
		if p.cfg.BatchSize > 0 && len(items) >= p.cfg.BatchSize {
			trigger = triggerSize
		} else {
			trigger = triggerInterval
		}
	}

	p.shipMu.Lock()
	defer p.shipMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		// Draining after cancellation still gets a bounded window.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
	}

	lines := make([]string, len(items))
	for i, r := range items {
		lines[i] = r.line
	}

	p.waitGate(ctx)

	bo := newBackoff(p.cfg.BackoffInitial, p.cfg.BackoffMax)
	for attempt := 1; ; attempt++ {
		start := p.clk.Now()
		err := p.snk.Ship(ctx, lines)
		duration := p.clk.Now().Sub(start)

		if err == nil {
			p.metrics.linesShipped.Add(float64(len(lines)))
			p.metrics.batchesShipped.WithLabelValues(trigger).Inc()
			p.metrics.shipDuration.Observe(duration.Seconds())
			p.logger.Info("shipped batch",
				log.Int("lines", len(lines)),
				log.Int("bytes", released),
				log.Str("trigger", trigger),
				log.Dur("duration", duration),
			)
			if p.emitter != nil {
				p.emitter.OnShipSuccess(len(lines), duration)
			}
			p.saveState(ctx, items)
			return
		}

		retryable := attempt < p.cfg.ShipAttempts
		p.metrics.shipErrors.Inc()
		p.logger.Error("ship failed",
			log.Err(err),
			log.Int("lines", len(lines)),
			log.Int("attempt", attempt),
		)
		if p.emitter != nil {
			p.emitter.OnShipError(err, len(lines), retryable)
		}
		if !retryable {
			p.metrics.batchesDropped.Inc()
			p.logger.Error("dropping batch after exhausted attempts",
				log.Int("lines", len(lines)),
				log.Int("attempts", p.cfg.ShipAttempts),
			)
			return
		}
		if err := bo.Sleep(ctx); err != nil {
			p.metrics.batchesDropped.Inc()
			p.logger.Error("dropping batch, canceled during retry backoff",
				log.Int("lines", len(lines)),
			)
			return
		}
	}
}

// waitGate polls a closed gate until it opens, bounded so a stuck gate
// cannot hold a batch indefinitely.
func (p *Pipeline) waitGate(ctx context.Context) {
	if p.gate == nil || p.gate.OK() {
		return
	}
	p.logger.Warn("delivery deferred, host busy")

	deadline := p.clk.Now().Add(gateMaxWait)
	for p.clk.Now().Before(deadline) {
		tick := make(chan struct{})
		t := p.clk.AfterFunc(gatePollInterval, func() { close(tick) })
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-tick:
		}
		if p.gate.OK() {
			return
		}
	}
	p.logger.Warn("gate still closed after wait, delivering anyway")
}

// saveState persists the resume offset after a successful ship. Sources
// that cannot report positions leave the offset untouched.
func (p *Pipeline) saveState(ctx context.Context, items []record) {
	if p.repo == nil {
		return
	}
	end := items[len(items)-1].end
	if end == 0 {
		return
	}
	p.st.UpdateAfterShip(end, len(items))
	if err := p.repo.Save(ctx, p.st); err != nil {
		p.logger.Error("failed to save state", log.Err(err))
	}
}
