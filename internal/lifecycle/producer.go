package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aiscientist/hazardwatch/internal/events"
	kafkautil "github.com/aiscientist/hazardwatch/pkg/kafka"
	"github.com/segmentio/kafka-go"
)

// Producer wraps a Kafka writer for the alerts.dispatch topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new dispatch producer. Messages are keyed by
// alert ID so all deliveries for one alert land on one partition.
func NewProducer(brokers, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing dispatch producer",
		"brokers", brokerList,
		"topic", topic,
	)

	kafkautil.CreateTopicIfNotExists(brokerList[0], topic, 3)

	return &Producer{
		writer: kafkautil.NewWriter(brokerList, topic),
		topic:  topic,
	}, nil
}

// Publish serializes a dispatch event to JSON and publishes it to Kafka.
func (p *Producer) Publish(ctx context.Context, d *events.AlertDispatch) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(d.AlertID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "schema_version", Value: []byte(fmt.Sprintf("%d", d.SchemaVersion))},
			{Key: "reason", Value: []byte(d.Reason)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write dispatch event to Kafka",
			"alert_id", d.AlertID,
			"topic", p.topic,
			"error", err,
		)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing dispatch producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing dispatch producer", "error", err)
		return err
	}
	return nil
}
