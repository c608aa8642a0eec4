package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/crewcall/crewcall/internal/timeline"
)

// kafkaWriter is the slice of *kafka.Writer the notifier uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes due notifications as JSON messages on a topic, for
// downstream consumers (dashboards, pagers) to pick up. Messages are keyed by
// notification id so retried deliveries land in the same partition.
type KafkaNotifier struct {
	writer kafkaWriter
}

// NewKafkaNotifier creates a notifier publishing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n timeline.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.ID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
