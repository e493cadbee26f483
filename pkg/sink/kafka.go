package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/bft-labs/batchq/pkg/log"
)

// MessageWriter abstracts the kafka-go writer for testing. The standard
// *kafka.Writer satisfies this interface.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures a Kafka sink.
type KafkaConfig struct {
	// Brokers lists the bootstrap broker addresses.
	Brokers []string

	// Topic is the topic batches are produced to.
	Topic string

	// Stream is the logical stream name, attached to every message as
	// a header.
	Stream string
}

// Kafka is a Sink that produces one message per item, writing each
// batch in a single producer call.
type Kafka[T any] struct {
	writer MessageWriter
	stream string
	logger log.Logger
}

// NewKafka creates a Kafka sink producing to cfg.Topic via cfg.Brokers.
func NewKafka[T any](cfg KafkaConfig, logger log.Logger) *Kafka[T] {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaWithWriter[T](w, cfg.Stream, logger)
}

// NewKafkaWithWriter creates a Kafka sink on an existing writer.
func NewKafkaWithWriter[T any](w MessageWriter, stream string, logger log.Logger) *Kafka[T] {
	if logger == nil {
		logger = log.Nop()
	}
	return &Kafka[T]{writer: w, stream: stream, logger: logger}
}

// Ship produces the batch. Empty batches produce nothing.
func (s *Kafka[T]) Ship(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, len(items))
	for i, item := range items {
		value, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		msgs[i] = kafka.Message{
			Value: value,
			Headers: []kafka.Header{
				{Key: "stream", Value: []byte(s.stream)},
			},
		}
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("produce batch: %w", err)
	}
	return nil
}

// Name identifies the sink.
func (s *Kafka[T]) Name() string { return "kafka" }

// Close closes the underlying writer.
func (s *Kafka[T]) Close() error {
	return s.writer.Close()
}
