package batchq_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/lifecycle"
)

// =============================================================================
// Test Utilities
// =============================================================================

// memorySink collects shipped batches for assertions.
type memorySink struct {
	mu      sync.Mutex
	batches [][]string
	fail    int // fail this many Ship calls before succeeding
}

func (s *memorySink) Ship(ctx context.Context, items []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("sink unavailable")
	}
	batch := make([]string, len(items))
	copy(batch, items)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Batches() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([][]string, len(s.batches))
	copy(cp, s.batches)
	return cp
}

// sliceSource yields a fixed set of lines and then io.EOF.
type sliceSource struct {
	lines []string
	next  int
}

func (s *sliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

// blockingSource blocks in Next until its context is canceled.
type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	name          string
	initOrder     *[]string
	shutdownOrder *[]string
	initError     error
	mu            sync.Mutex
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg batchq.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initError != nil {
		return p.initError
	}
	*p.initOrder = append(*p.initOrder, p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.shutdownOrder = append(*p.shutdownOrder, p.name)
	return nil
}

// recordingHandler captures shipper events.
type recordingHandler struct {
	batchq.BaseEventHandler

	mu        sync.Mutex
	states    []batchq.State
	successes []batchq.ShipSuccessEvent
}

func (h *recordingHandler) OnStateChange(e batchq.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Current)
}

func (h *recordingHandler) OnShipSuccess(e batchq.ShipSuccessEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.successes = append(h.successes, e)
}

func (h *recordingHandler) States() []batchq.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]batchq.State(nil), h.states...)
}

func (h *recordingHandler) Successes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.successes)
}

// =============================================================================
// Tests
// =============================================================================

func TestRunShipsAllLines(t *testing.T) {
	snk := &memorySink{}
	src := &sliceSource{lines: []string{"a", "b", "c"}}

	cfg := batchq.Config{BatchSize: 2, ShipAttempts: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := batchq.Run(ctx, cfg, batchq.WithSource(src), batchq.WithSink(snk)); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	batches := snk.Batches()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2: %v", len(batches), batches)
	}
	if batches[0][0] != "a" || batches[0][1] != "b" {
		t.Errorf("first batch = %v, want [a b]", batches[0])
	}
	if len(batches[1]) != 1 || batches[1][0] != "c" {
		t.Errorf("drained batch = %v, want [c]", batches[1])
	}
}

func TestRunRetriesFailedShips(t *testing.T) {
	snk := &memorySink{fail: 1}
	src := &sliceSource{lines: []string{"x", "y"}}

	cfg := batchq.Config{BatchSize: 2, ShipAttempts: 3}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := batchq.Run(ctx, cfg, batchq.WithSource(src), batchq.WithSink(snk)); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	batches := snk.Batches()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1 after retry: %v", len(batches), batches)
	}
}

func TestStartAndStop(t *testing.T) {
	s, err := batchq.New(batchq.Config{BatchSize: 10},
		batchq.WithSource(blockingSource{}),
		batchq.WithSink(&memorySink{}))
	if err != nil {
		t.Fatalf("New() = %v, want nil", err)
	}

	if got := s.Status(); got != batchq.StateStopped {
		t.Fatalf("Status() = %v before Start, want Stopped", got)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}

	// Second Start must be rejected while running.
	if err := s.Start(context.Background()); !errors.Is(err, lifecycle.ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() = %v, want nil", err)
	}
	if got := s.Status(); got != batchq.StateStopped {
		t.Errorf("Status() = %v after Stop, want Stopped", got)
	}
}

// waitForState polls Status until the shipper reaches want.
func waitForState(t *testing.T, s *batchq.Shipper, want batchq.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Status() = %v, want %v within 5s", s.Status(), want)
}

func TestCancelWithoutStopReleasesResources(t *testing.T) {
	var initOrder, shutdownOrder []string
	p := &trackingPlugin{name: "tracker", initOrder: &initOrder, shutdownOrder: &shutdownOrder}

	s, err := batchq.New(batchq.Config{BatchSize: 10},
		batchq.WithSource(blockingSource{}),
		batchq.WithSink(&memorySink{}),
		batchq.WithPlugin(p))
	if err != nil {
		t.Fatalf("New() = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	waitForState(t, s, batchq.StateRunning)

	// Cancel the run context instead of calling Stop; the shipper must
	// wind itself down all the same.
	cancel()
	waitForState(t, s, batchq.StateStopped)

	if len(shutdownOrder) != 1 || shutdownOrder[0] != "tracker" {
		t.Errorf("shutdown order = %v, want [tracker]", shutdownOrder)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s, err := batchq.New(batchq.Config{BatchSize: 10},
		batchq.WithSource(blockingSource{}),
		batchq.WithSink(&memorySink{}))
	if err != nil {
		t.Fatalf("New() = %v, want nil", err)
	}
	if err := s.Stop(); !errors.Is(err, lifecycle.ErrNotRunning) {
		t.Errorf("Stop() = %v, want ErrNotRunning", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  batchq.Config
	}{
		{"no triggers", batchq.Config{}},
		{"negative batch size", batchq.Config{BatchSize: -1}},
		{"negative interval", batchq.Config{FlushInterval: -time.Second}},
		{"once without follow", batchq.Config{BatchSize: 1, Once: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := batchq.New(tt.cfg); err == nil {
				t.Errorf("New(%+v) = nil error, want validation failure", tt.cfg)
			}
		})
	}
}

func TestPluginLifecycleOrder(t *testing.T) {
	var initOrder, shutdownOrder []string
	p1 := &trackingPlugin{name: "first", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	p2 := &trackingPlugin{name: "second", initOrder: &initOrder, shutdownOrder: &shutdownOrder}

	snk := &memorySink{}
	src := &sliceSource{lines: []string{"only"}}

	cfg := batchq.Config{BatchSize: 1, ShipAttempts: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := batchq.Run(ctx, cfg,
		batchq.WithSource(src),
		batchq.WithSink(snk),
		batchq.WithPlugin(p1),
		batchq.WithPlugin(p2))
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	if len(initOrder) != 2 || initOrder[0] != "first" || initOrder[1] != "second" {
		t.Errorf("init order = %v, want [first second]", initOrder)
	}
	if len(shutdownOrder) != 2 || shutdownOrder[0] != "second" || shutdownOrder[1] != "first" {
		t.Errorf("shutdown order = %v, want [second first]", shutdownOrder)
	}
}

func TestPluginInitFailureAbortsStart(t *testing.T) {
	var initOrder, shutdownOrder []string
	good := &trackingPlugin{name: "good", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	bad := &trackingPlugin{
		name: "bad", initOrder: &initOrder, shutdownOrder: &shutdownOrder,
		initError: errors.New("refused"),
	}

	s, err := batchq.New(batchq.Config{BatchSize: 1},
		batchq.WithSource(blockingSource{}),
		batchq.WithSink(&memorySink{}),
		batchq.WithPlugin(good),
		batchq.WithPlugin(bad))
	if err != nil {
		t.Fatalf("New() = %v, want nil", err)
	}

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() = nil, want plugin init error")
	}
	if got := s.Status(); got != batchq.StateCrashed {
		t.Errorf("Status() = %v after failed start, want Crashed", got)
	}
	if len(shutdownOrder) != 1 || shutdownOrder[0] != "good" {
		t.Errorf("shutdown order = %v, want [good]", shutdownOrder)
	}
}

func TestEventHandlerSeesLifecycleAndShips(t *testing.T) {
	handler := &recordingHandler{}
	snk := &memorySink{}
	src := &sliceSource{lines: []string{"a", "b"}}

	cfg := batchq.Config{BatchSize: 2, ShipAttempts: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := batchq.Run(ctx, cfg,
		batchq.WithSource(src),
		batchq.WithSink(snk),
		batchq.WithEventHandler(handler))
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	if handler.Successes() != 1 {
		t.Errorf("got %d ship success events, want 1", handler.Successes())
	}
	states := handler.States()
	if len(states) == 0 || states[len(states)-1] != batchq.StateStopped {
		t.Errorf("final state event = %v, want Stopped", states)
	}
	sawRunning := false
	for _, st := range states {
		if st == batchq.StateRunning {
			sawRunning = true
		}
	}
	if !sawRunning {
		t.Errorf("state events %v never reached Running", states)
	}
}
