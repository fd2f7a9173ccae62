package publish

import (
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/DarkZek/christchurch-bus-mural/internal/models"
)

const flushTimeoutMs = 5000

// Kafka produces snapshots to a topic asynchronously
type Kafka struct {
	producer *kafka.Producer
	topic    string
	done     chan struct{}
}

// NewKafka connects a producer to brokers (comma-separated host:port list)
func NewKafka(brokers, topic string) (*Kafka, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	k := &Kafka{producer: p, topic: topic, done: make(chan struct{})}
	go k.drainEvents()
	return k, nil
}

func (k *Kafka) drainEvents() {
	defer close(k.done)
	for e := range k.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				slog.Warn("snapshot delivery failed", "topic", k.topic, "error", ev.TopicPartition.Error)
			}
		case kafka.Error:
			slog.Warn("kafka error", "error", ev)
		}
	}
}

// Publish enqueues snap; failures are logged and never reach the caller.
func (k *Kafka) Publish(snap models.Snapshot) {
	data, err := Encode(snap)
	if err != nil {
		slog.Error("publishing snapshot", "error", err)
		return
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(MessageKey),
		Value:          data,
		Timestamp:      snap.LastUpdated,
	}, nil)
	if err != nil {
		slog.Warn("enqueueing snapshot", "topic", k.topic, "error", err)
	}
}

// Close flushes pending messages and shuts the producer down
func (k *Kafka) Close() {
	if remaining := k.producer.Flush(flushTimeoutMs); remaining > 0 {
		slog.Warn("kafka flush timed out", "pending", remaining)
	}
	k.producer.Close()
	<-k.done
}
