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

// Consumer wraps a Kafka reader for the alert.intents topic.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a new intent consumer with at-least-once semantics.
// Offsets are committed explicitly after the alert transition is committed
// to the database, so a crash between read and commit redelivers the
// intent. Redelivered intents are absorbed by the upsert (an extend for a
// re-trigger, a no-op for a re-clear).
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing intent consumer",
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

// ReadMessage fetches the next trigger intent. The raw Kafka message is
// returned for offset tracking.
func (c *Consumer) ReadMessage(ctx context.Context) (*events.TriggerIntent, *kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	var intent events.TriggerIntent
	if err := json.Unmarshal(msg.Value, &intent); err != nil {
		return nil, &msg, fmt.Errorf("failed to unmarshal trigger intent: %w", err)
	}

	return &intent, &msg, nil
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
	slog.Info("Closing intent consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing intent consumer", "error", err)
		return err
	}
	return nil
}
