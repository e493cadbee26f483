package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/batchq/internal/cliconfig"
	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/log"
)

// testLogger captures log messages for assertions.
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, fields ...log.Field) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, fields ...log.Field)  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, fields ...log.Field)  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, fields ...log.Field) { l.log("ERROR", msg) }

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *testLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// waitFor polls cond until it reports true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func startPlugin(t *testing.T, path string) (*Plugin, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := plugin.Initialize(ctx, batchq.PluginConfig{Logger: logger}); err != nil {
		t.Fatalf("Initialize() = %v, want nil", err)
	}
	t.Cleanup(func() {
		if err := plugin.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() = %v, want nil", err)
		}
	})
	return plugin, logger
}

func TestPluginReportsChangedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "batch_size = 100\n")

	_, logger := startPlugin(t, path)

	writeConfig(t, path, "batch_size = 250\n")

	if !waitFor(t, 3*time.Second, func() bool {
		return logger.contains("config file changed, restart to apply")
	}) {
		t.Fatalf("no change report after edit; logs: %v", logger.messages)
	}
}

func TestPluginReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "batch_size = 100\n")

	_, logger := startPlugin(t, path)

	writeConfig(t, path, "batch_size = [not toml\n")

	if !waitFor(t, 3*time.Second, func() bool {
		return logger.contains("does not parse")
	}) {
		t.Fatalf("no parse error report after bad edit; logs: %v", logger.messages)
	}
}

func TestPluginDisabledWithoutPath(t *testing.T) {
	logger := &testLogger{}
	plugin := New(Config{})

	if err := plugin.Initialize(context.Background(), batchq.PluginConfig{Logger: logger}); err != nil {
		t.Fatalf("Initialize() = %v, want nil", err)
	}
	if !logger.contains("config watcher disabled") {
		t.Errorf("expected a disabled warning, got %v", logger.messages)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestChangedKeys(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.toml")
	bPath := filepath.Join(dir, "b.toml")
	writeConfig(t, aPath, "follow = \"/var/log/a.log\"\nbatch_size = 100\n")
	writeConfig(t, bPath, "follow = \"/var/log/b.log\"\nbatch_size = 100\nstream = \"prod\"\n")

	a, err := cliconfig.LoadFileConfig(aPath)
	if err != nil {
		t.Fatalf("load a: %v", err)
	}
	b, err := cliconfig.LoadFileConfig(bPath)
	if err != nil {
		t.Fatalf("load b: %v", err)
	}

	got := changedKeys(a, b)
	want := []string{"follow", "stream"}
	if len(got) != len(want) {
		t.Fatalf("changedKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("changedKeys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
