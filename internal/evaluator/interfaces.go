package evaluator

import (
	"context"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// MeasurementReader reads measurements from a message queue.
type MeasurementReader interface {
	// ReadMessage reads the next message and returns the parsed measurement.
	ReadMessage(ctx context.Context) (*events.MeasurementEvent, *kafka.Message, error)

	// Close closes the reader and releases resources.
	Close() error
}

// IntentPublisher publishes trigger intents to a message queue.
type IntentPublisher interface {
	// Publish publishes a trigger intent.
	Publish(ctx context.Context, intent *events.TriggerIntent) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Evaluator turns a measurement into zero or one trigger intent.
type Evaluator interface {
	Evaluate(ctx context.Context, m *events.MeasurementEvent) (*events.TriggerIntent, error)
}

// MetricsRecorder records processing metrics.
type MetricsRecorder interface {
	RecordReceived()
	RecordProcessed(latency time.Duration)
	RecordPublished()
	RecordError()
	IncrementCustom(name string)
}

// NoOpMetrics is a MetricsRecorder that does nothing.
type NoOpMetrics struct{}

func (*NoOpMetrics) RecordReceived()               {}
func (*NoOpMetrics) RecordProcessed(time.Duration) {}
func (*NoOpMetrics) RecordPublished()              {}
func (*NoOpMetrics) RecordError()                  {}
func (*NoOpMetrics) IncrementCustom(string)        {}
