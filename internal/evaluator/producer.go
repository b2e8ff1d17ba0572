package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	kafkautil "github.com/aiscientist/hazardwatch/pkg/kafka"
	"github.com/segmentio/kafka-go"
)

// Producer wraps a Kafka writer for the alert.intents topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates an intent producer. Intents are keyed by
// category|scope so the lifecycle store sees each partition's transitions
// in order.
func NewProducer(brokers, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing intent producer",
		"brokers", brokerList,
		"topic", topic,
	)

	kafkautil.CreateTopicIfNotExists(brokerList[0], topic, 3)

	return &Producer{
		writer: kafkautil.NewWriter(brokerList, topic),
		topic:  topic,
	}, nil
}

// Publish serializes a trigger intent to JSON and publishes it to Kafka.
func (p *Producer) Publish(ctx context.Context, intent *events.TriggerIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(intent.PartitionKey()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "schema_version", Value: []byte(fmt.Sprintf("%d", intent.SchemaVersion))},
			{Key: "kind", Value: []byte(intent.Kind)},
		},
		Time: time.Unix(intent.EventTS, 0),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write intent to Kafka",
			"category", intent.Category,
			"scope", intent.Scope,
			"topic", p.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing intent producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing intent producer", "error", err)
		return err
	}
	return nil
}
