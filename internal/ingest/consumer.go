package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aiscientist/hazardwatch/internal/events"
	kafkautil "github.com/aiscientist/hazardwatch/pkg/kafka"
	"github.com/segmentio/kafka-go"
)

// Consumer wraps a Kafka reader for the raw.events topic.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a new raw event consumer with at-least-once semantics.
// Offsets are committed explicitly after the measurement is durably appended,
// so a crash between read and append redelivers the raw event.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing raw event consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	cfg := kafkautil.NewReaderConfig(brokerList, topic, groupID)
	// Explicit commit after successful processing
	cfg.CommitInterval = 0

	reader := kafka.NewReader(cfg)
	kafkautil.LogReaderConfig()

	return &Consumer{reader: reader, topic: topic}, nil
}

// ReadMessage fetches the next raw event. The raw Kafka message is returned
// for offset tracking.
func (c *Consumer) ReadMessage(ctx context.Context) (*events.RawEvent, *kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	var raw events.RawEvent
	if err := json.Unmarshal(msg.Value, &raw); err != nil {
		return nil, &msg, fmt.Errorf("failed to unmarshal raw event: %w", err)
	}

	return &raw, &msg, nil
}

// CommitMessage commits the offset for the given message.
func (c *Consumer) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, *msg); err != nil {
		return fmt.Errorf("failed to commit offset: %w", err)
	}
	return nil
}

// Close gracefully closes the Kafka reader and releases resources.
func (c *Consumer) Close() error {
	slog.Info("Closing raw event consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing raw event consumer", "error", err)
		return err
	}
	return nil
}
