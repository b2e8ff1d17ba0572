package lifecycle

import (
	"context"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// IntentReader reads trigger intents from a message queue.
type IntentReader interface {
	// ReadMessage reads the next message and returns the parsed intent.
	ReadMessage(ctx context.Context) (*events.TriggerIntent, *kafka.Message, error)

	// CommitMessage commits the offset for the given message.
	CommitMessage(ctx context.Context, msg *kafka.Message) error

	// Close closes the reader and releases resources.
	Close() error
}

// DispatchPublisher publishes dispatch events to a message queue.
type DispatchPublisher interface {
	// Publish publishes a dispatch event.
	Publish(ctx context.Context, d *events.AlertDispatch) error

	// Close closes the publisher and releases resources.
	Close() error
}

// AlertStore applies intents to persistent alert state.
type AlertStore interface {
	// Upsert applies an intent and returns the affected alert plus the
	// dispatch reason (empty when no delivery should happen).
	Upsert(ctx context.Context, intent *events.TriggerIntent) (*Alert, string, error)
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
