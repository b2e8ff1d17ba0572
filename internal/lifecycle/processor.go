package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// Processor applies trigger intents to the alert store and publishes
// dispatch events for created or escalated alerts.
type Processor struct {
	reader    IntentReader
	publisher DispatchPublisher
	store     AlertStore
	metrics   MetricsRecorder
}

// NewProcessor creates a new lifecycle processor with no-op metrics.
func NewProcessor(reader IntentReader, publisher DispatchPublisher, store AlertStore) *Processor {
	return NewProcessorWithMetrics(reader, publisher, store, nil)
}

// NewProcessorWithMetrics creates a processor with the provided metrics
// recorder. If m is nil, a no-op implementation is used.
func NewProcessorWithMetrics(reader IntentReader, publisher DispatchPublisher, store AlertStore, m MetricsRecorder) *Processor {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Processor{
		reader:    reader,
		publisher: publisher,
		store:     store,
		metrics:   m,
	}
}

// ProcessIntents continuously reads trigger intents, applies them to the
// alert store, and publishes dispatch events. Offsets are committed only
// after the database transaction committed, so every intent is applied at
// least once.
func (p *Processor) ProcessIntents(ctx context.Context) error {
	slog.Info("Starting intent processing loop")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Intent processing loop stopped")
			return nil
		default:
			intent, msg, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if msg != nil {
					// Undecodable message: commit and move on, redelivery
					// cannot fix it.
					slog.Error("Skipping undecodable intent", "error", err)
					p.metrics.RecordError()
					p.commit(ctx, msg)
					continue
				}
				slog.Error("Failed to read intent", "error", err)
				p.metrics.RecordError()
				continue
			}

			p.metrics.RecordReceived()

			if p.processIntent(ctx, intent) {
				p.commit(ctx, msg)
			}
		}
	}
}

// processIntent applies a single intent. Returns true when the offset may
// be committed.
func (p *Processor) processIntent(ctx context.Context, intent *events.TriggerIntent) bool {
	startTime := time.Now()

	if err := intent.Validate(); err != nil {
		// Invalid intents are poison; redelivery cannot fix them.
		slog.Warn("Rejecting invalid intent",
			"kind", intent.Kind,
			"category", intent.Category,
			"scope", intent.Scope,
			"error", err,
		)
		p.metrics.IncrementCustom("intents_rejected")
		return true
	}

	alert, reason, err := p.store.Upsert(ctx, intent)
	if err != nil {
		// Transient database failure: do not commit, let Kafka redeliver.
		slog.Error("Failed to apply intent",
			"kind", intent.Kind,
			"category", intent.Category,
			"scope", intent.Scope,
			"error", err,
		)
		p.metrics.RecordError()
		return false
	}

	switch {
	case reason != "":
		dispatch := events.NewAlertDispatch(alert.AlertID, alert.Category, alert.Scope, alert.Severity, reason)
		if err := p.publisher.Publish(ctx, dispatch); err != nil {
			// The alert row exists but delivery was not enqueued. Hold the
			// offset so Kafka redelivers the intent. This covers publish
			// failures only; a crash after the upsert commits but before the
			// publish succeeds still loses the dispatch, since the redelivered
			// intent lands as an extension. That window is accepted here in
			// place of a transactional outbox.
			slog.Error("Failed to publish dispatch event",
				"alert_id", alert.AlertID,
				"reason", reason,
				"error", err,
			)
			p.metrics.RecordError()
			return false
		}
		p.metrics.RecordPublished()
		slog.Info("Alert dispatched",
			"alert_id", alert.AlertID,
			"category", alert.Category,
			"scope", alert.Scope,
			"severity", alert.Severity,
			"reason", reason,
		)

	case alert == nil:
		p.metrics.IncrementCustom("intents_noop")

	case alert.Status == StatusExpired:
		p.metrics.IncrementCustom("alerts_cleared")
		slog.Info("Alert cleared",
			"alert_id", alert.AlertID,
			"category", alert.Category,
			"scope", alert.Scope,
		)

	default:
		p.metrics.IncrementCustom("alerts_extended")
	}

	p.metrics.RecordProcessed(time.Since(startTime))
	return true
}

func (p *Processor) commit(ctx context.Context, msg *kafka.Message) {
	if err := p.reader.CommitMessage(ctx, msg); err != nil {
		slog.Error("Failed to commit offset", "error", err)
		p.metrics.RecordError()
	}
}
