package ingest

import (
	"context"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// RawEventReader reads raw events from a message queue.
type RawEventReader interface {
	// ReadMessage reads the next message and returns the parsed RawEvent.
	// Returns the raw message for offset tracking.
	ReadMessage(ctx context.Context) (*events.RawEvent, *kafka.Message, error)

	// CommitMessage commits the offset for the given message.
	CommitMessage(ctx context.Context, msg *kafka.Message) error

	// Close closes the reader and releases resources.
	Close() error
}

// MeasurementPublisher publishes canonical measurements to a message queue.
type MeasurementPublisher interface {
	// Publish publishes a measurement event.
	Publish(ctx context.Context, m *events.MeasurementEvent) error

	// Close closes the publisher and releases resources.
	Close() error
}

// MeasurementStorage appends measurements to the durable log.
type MeasurementStorage interface {
	// InsertMeasurementIdempotent appends a measurement with idempotency
	// protection. Returns the measurement ID if a new row was inserted, or
	// nil if it already existed.
	InsertMeasurementIdempotent(ctx context.Context, m *events.MeasurementEvent) (*string, error)

	// Close closes the storage connection.
	Close() error
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

func (*NoOpMetrics) RecordReceived()                     {}
func (*NoOpMetrics) RecordProcessed(time.Duration)       {}
func (*NoOpMetrics) RecordPublished()                    {}
func (*NoOpMetrics) RecordError()                        {}
func (*NoOpMetrics) IncrementCustom(string)              {}
