package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aiscientist/hazardwatch/internal/events"
	kafkautil "github.com/aiscientist/hazardwatch/pkg/kafka"
	"github.com/segmentio/kafka-go"
)

// Consumer wraps a Kafka reader for the alerts.dispatch topic.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a new dispatch consumer with at-least-once semantics.
// Offsets are committed after the event is enqueued to the channel worker
// pools. A crash before the commit redelivers the dispatch; the delivery
// log keeps duplicates visible.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing dispatch consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	cfg := kafkautil.NewReaderConfig(brokerList, topic, groupID)
	// Explicit commit after enqueue
	cfg.CommitInterval = 0

	reader := kafka.NewReader(cfg)
	kafkautil.LogReaderConfig()

	return &Consumer{reader: reader, topic: topic}, nil
}

// ReadMessage fetches the next dispatch event. The raw Kafka message is
// returned for offset tracking.
func (c *Consumer) ReadMessage(ctx context.Context) (*events.AlertDispatch, *kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	var dispatch events.AlertDispatch
	if err := json.Unmarshal(msg.Value, &dispatch); err != nil {
		return nil, &msg, fmt.Errorf("failed to unmarshal dispatch event: %w", err)
	}

	return &dispatch, &msg, nil
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
	slog.Info("Closing dispatch consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing dispatch consumer", "error", err)
		return err
	}
	return nil
}
