package dispatch

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Processor feeds dispatch events from Kafka into the dispatcher's channel
// queues.
type Processor struct {
	reader     DispatchReader
	dispatcher *Dispatcher
	metrics    MetricsRecorder
}

// NewProcessor creates a new dispatch processor. If m is nil, a no-op
// metrics implementation is used.
func NewProcessor(reader DispatchReader, dispatcher *Dispatcher, m MetricsRecorder) *Processor {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Processor{
		reader:     reader,
		dispatcher: dispatcher,
		metrics:    m,
	}
}

// ProcessDispatches continuously reads dispatch events and enqueues them
// for delivery. Enqueue blocks when the channel queues are full, which is
// the backpressure mechanism toward Kafka.
func (p *Processor) ProcessDispatches(ctx context.Context) error {
	slog.Info("Starting dispatch processing loop")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Dispatch processing loop stopped")
			return nil
		default:
			ev, msg, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if msg != nil {
					slog.Error("Skipping undecodable dispatch event", "error", err)
					p.metrics.RecordError()
					p.commit(ctx, msg)
					continue
				}
				slog.Error("Failed to read dispatch event", "error", err)
				p.metrics.RecordError()
				continue
			}

			p.metrics.RecordReceived()

			if err := p.dispatcher.Enqueue(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Unroutable severity: poison, commit and move on.
				slog.Warn("Dropping unroutable dispatch event",
					"alert_id", ev.AlertID,
					"severity", ev.Severity,
					"error", err,
				)
				p.metrics.IncrementCustom("dispatches_unroutable")
			}

			p.commit(ctx, msg)
		}
	}
}

func (p *Processor) commit(ctx context.Context, msg *kafka.Message) {
	if err := p.reader.CommitMessage(ctx, msg); err != nil {
		slog.Error("Failed to commit offset", "error", err)
		p.metrics.RecordError()
	}
}
