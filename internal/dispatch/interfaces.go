package dispatch

import (
	"context"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// DispatchReader reads dispatch events from a message queue.
type DispatchReader interface {
	// ReadMessage reads the next message and returns the parsed dispatch.
	ReadMessage(ctx context.Context) (*events.AlertDispatch, *kafka.Message, error)

	// CommitMessage commits the offset for the given message.
	CommitMessage(ctx context.Context, msg *kafka.Message) error

	// Close closes the reader and releases resources.
	Close() error
}

// AttemptStore records delivery attempts and resolves alert status.
type AttemptStore interface {
	// RecordAttempt appends one delivery attempt to the log.
	RecordAttempt(ctx context.Context, a *Attempt) error

	// GetAlertStatus returns the alert's current status.
	GetAlertStatus(ctx context.Context, alertID string) (string, error)
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
