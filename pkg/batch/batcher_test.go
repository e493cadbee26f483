package batch

import (
	"reflect"
	"testing"

	"github.com/bft-labs/batchq/pkg/log"
)

func TestNewBatcherStartsEmpty(t *testing.T) {
	b := New[int]()

	if got := b.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if !b.IsEmpty() {
		t.Error("IsEmpty() = false, want true")
	}
	if got := b.Items(); len(got) != 0 {
		t.Errorf("Items() = %v, want empty", got)
	}
}

func TestPushAppendsAndNotifies(t *testing.T) {
	b := New[string]()
	var got []string
	b.OnPush(func(item string) { got = append(got, item) })

	b.Push("x")

	if b.Len() != 1 {
		t.Errorf("Len() after one push = %d, want 1", b.Len())
	}
	if items := b.Items(); !reflect.DeepEqual(items, []string{"x"}) {
		t.Errorf("Items() = %v, want [x]", items)
	}
	if !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("push handler received %v, want exactly one %q", got, "x")
	}
}

func TestPushPreservesInsertionOrder(t *testing.T) {
	b := New[int]()
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}

	want := []int{1, 2, 3, 4, 5}
	if got := b.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
}

func TestFlushDeliversBatchAndResets(t *testing.T) {
	b := New[string]()
	var batches [][]string
	b.OnFlush(func(batch []string) { batches = append(batches, batch) })

	b.Push("a")
	b.Push("b")
	b.Flush()

	if len(batches) != 1 {
		t.Fatalf("flush deliveries = %d, want 1", len(batches))
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(batches[0], want) {
		t.Errorf("delivered batch = %v, want %v", batches[0], want)
	}
	if !b.IsEmpty() {
		t.Error("buffer not empty after flush")
	}
}

func TestFlushOnEmptyBufferDeliversEmptyBatch(t *testing.T) {
	b := New[int]()
	deliveries := 0
	var size int
	b.OnFlush(func(batch []int) {
		deliveries++
		size = len(batch)
	})

	b.Flush()

	if deliveries != 1 {
		t.Fatalf("flush deliveries = %d, want 1", deliveries)
	}
	if size != 0 {
		t.Errorf("delivered batch size = %d, want 0", size)
	}
}

func TestAccumulateFlushCycles(t *testing.T) {
	b := New[int]()
	var batches [][]int
	b.OnFlush(func(batch []int) { batches = append(batches, batch) })

	b.Push(1)
	b.Push(2)
	b.Flush()
	b.Push(3)
	b.Flush()

	want := [][]int{{1, 2}, {3}}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("batches = %v, want %v", batches, want)
	}
}

func TestItemsReturnsDefensiveCopy(t *testing.T) {
	b := New[int]()
	b.Push(1)
	b.Push(2)

	snapshot := b.Items()
	snapshot[0] = 99

	if got := b.Items(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Items() after mutating a snapshot = %v, want [1 2]", got)
	}

	var flushed []int
	b.OnFlush(func(batch []int) { flushed = batch })
	b.Flush()
	if !reflect.DeepEqual(flushed, []int{1, 2}) {
		t.Errorf("flushed batch = %v, want [1 2]", flushed)
	}
}

func TestFlushedBatchIsDetached(t *testing.T) {
	b := New[int]()
	var retained []int
	b.OnFlush(func(batch []int) {
		if retained == nil {
			retained = batch
		}
	})

	b.Push(1)
	b.Push(2)
	b.Flush()
	b.Push(3)
	b.Push(4)
	b.Flush()

	if want := []int{1, 2}; !reflect.DeepEqual(retained, want) {
		t.Errorf("retained batch = %v after later pushes, want %v", retained, want)
	}
}

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	b := New[int]()
	var order []string
	b.OnPush(func(int) { order = append(order, "push-1") }).
		OnPush(func(int) { order = append(order, "push-2") }).
		OnFlush(func([]int) { order = append(order, "flush-1") }).
		OnFlush(func([]int) { order = append(order, "flush-2") })

	b.Push(1)
	b.Flush()

	want := []string{"push-1", "push-2", "flush-1", "flush-2"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("handler order = %v, want %v", order, want)
	}
}

func TestFlushFromPushHandlerCompletesInline(t *testing.T) {
	b := New[string]()
	var order []string
	var batches [][]string
	b.OnPush(func(item string) {
		order = append(order, "push:"+item)
		if item == "go" {
			b.Flush()
		}
	})
	b.OnFlush(func(batch []string) {
		order = append(order, "flush")
		batches = append(batches, batch)
	})

	b.Push("a")
	b.Push("go")

	wantOrder := []string{"push:a", "push:go", "flush"}
	if !reflect.DeepEqual(order, wantOrder) {
		t.Errorf("event order = %v, want %v", order, wantOrder)
	}
	if want := [][]string{{"a", "go"}}; !reflect.DeepEqual(batches, want) {
		t.Errorf("batches = %v, want %v", batches, want)
	}
	if !b.IsEmpty() {
		t.Error("buffer not empty after nested flush returned")
	}
}

func TestPushHandlerPanicLeavesItemCommitted(t *testing.T) {
	b := New[int]()
	b.OnPush(func(int) { panic("handler failure") })

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic from push handler did not propagate")
			}
		}()
		b.Push(1)
	}()

	if got := b.Items(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("buffer after handler panic = %v, want [1]", got)
	}
}

func TestFlushHandlerPanicLeavesBufferFlushed(t *testing.T) {
	b := New[int]()
	b.OnFlush(func([]int) { panic("handler failure") })
	b.Push(1)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic from flush handler did not propagate")
			}
		}()
		b.Flush()
	}()

	if !b.IsEmpty() {
		t.Error("buffer not empty after a flush whose handler panicked")
	}
}

func TestWithLoggerReportsFlushes(t *testing.T) {
	rec := &recordingLogger{}
	b := New[int](WithLogger[int](rec))

	b.Push(1)
	b.Flush()

	if len(rec.debugs) != 1 {
		t.Fatalf("debug records = %d, want 1", len(rec.debugs))
	}
	if got, want := rec.debugs[0], "batch released"; got != want {
		t.Errorf("debug message = %q, want %q", got, want)
	}
}

func TestNilOptionValuesKeepDefaults(t *testing.T) {
	b := New[int](WithLogger[int](nil), WithClock[int](nil))
	b.Push(1)
	b.Flush() // must not panic on a nil logger or clock
}

// recordingLogger captures messages by level for assertions.
type recordingLogger struct {
	debugs []string
	infos  []string
	warns  []string
	errors []string
}

func (r *recordingLogger) Debug(msg string, fields ...log.Field) { r.debugs = append(r.debugs, msg) }
func (r *recordingLogger) Info(msg string, fields ...log.Field)  { r.infos = append(r.infos, msg) }
func (r *recordingLogger) Warn(msg string, fields ...log.Field)  { r.warns = append(r.warns, msg) }
func (r *recordingLogger) Error(msg string, fields ...log.Field) { r.errors = append(r.errors, msg) }
