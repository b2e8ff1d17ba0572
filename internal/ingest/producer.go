package ingest

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

// Producer wraps a Kafka writer for the measurements topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new measurement producer. Messages are keyed by
// category|scope so per-partition ordering matches per-(category, scope)
// ordering, which the evaluator depends on.
func NewProducer(brokers, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing measurement producer",
		"brokers", brokerList,
		"topic", topic,
	)

	kafkautil.CreateTopicIfNotExists(brokerList[0], topic, 3)

	return &Producer{
		writer: kafkautil.NewWriter(brokerList, topic),
		topic:  topic,
	}, nil
}

// Publish serializes a measurement to JSON and publishes it to Kafka.
func (p *Producer) Publish(ctx context.Context, m *events.MeasurementEvent) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal measurement: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(m.PartitionKey()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "schema_version", Value: []byte(fmt.Sprintf("%d", m.SchemaVersion))},
			{Key: "measurement_id", Value: []byte(m.MeasurementID)},
		},
		Time: time.Unix(m.ObservedAt, 0),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write measurement to Kafka",
			"measurement_id", m.MeasurementID,
			"topic", p.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing measurement producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing measurement producer", "error", err)
		return err
	}
	return nil
}
