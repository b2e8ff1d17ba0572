package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aiscientist/hazardwatch/internal/events"
	kafkautil "github.com/aiscientist/hazardwatch/pkg/kafka"
	"github.com/segmentio/kafka-go"
)

// Consumer wraps a Kafka reader for the measurements topic.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a measurement consumer. Measurements are keyed by
// category|scope upstream, so one partition carries one ordered
// (category, scope) stream and evaluation order is deterministic.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing measurement consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	reader := kafka.NewReader(kafkautil.NewReaderConfig(brokerList, topic, groupID))
	kafkautil.LogReaderConfig()

	return &Consumer{reader: reader, topic: topic}, nil
}

// ReadMessage reads the next measurement from Kafka.
func (c *Consumer) ReadMessage(ctx context.Context) (*events.MeasurementEvent, *kafka.Message, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	var m events.MeasurementEvent
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return nil, &msg, fmt.Errorf("failed to unmarshal measurement: %w", err)
	}

	return &m, &msg, nil
}

// Close gracefully closes the Kafka reader and releases resources.
func (c *Consumer) Close() error {
	slog.Info("Closing measurement consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing measurement consumer", "error", err)
		return err
	}
	return nil
}
