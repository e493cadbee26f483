package batchq_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/batchq/pkg/batchq"
)

// Example demonstrates shipping lines from an in-memory reader to a
// custom sink.
func Example() {
	src := batchq.SourceFromReader(strings.NewReader("one\ntwo\nthree\n"))
	snk := &printSink{}

	cfg := batchq.Config{BatchSize: 2, ShipAttempts: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := batchq.Run(ctx, cfg, batchq.WithSource(src), batchq.WithSink(snk)); err != nil {
		fmt.Println("error:", err)
		return
	}

	// Output:
	// batch: [one two]
	// batch: [three]
}

type printSink struct{}

func (*printSink) Ship(_ context.Context, items []string) error {
	fmt.Printf("batch: %v\n", items)
	return nil
}

func (*printSink) Name() string { return "print" }
