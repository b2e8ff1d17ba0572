package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// Processor orchestrates ingestion: read raw event, normalize, append to the
// measurement log, publish the canonical measurement downstream.
type Processor struct {
	reader     RawEventReader
	publisher  MeasurementPublisher
	storage    MeasurementStorage
	normalizer *Normalizer
	metrics    MetricsRecorder
}

// NewProcessor creates a new ingestion processor with no-op metrics.
func NewProcessor(reader RawEventReader, publisher MeasurementPublisher, storage MeasurementStorage, normalizer *Normalizer) *Processor {
	return NewProcessorWithMetrics(reader, publisher, storage, normalizer, nil)
}

// NewProcessorWithMetrics creates a processor with the provided metrics
// recorder. If m is nil, a no-op implementation is used.
func NewProcessorWithMetrics(reader RawEventReader, publisher MeasurementPublisher, storage MeasurementStorage, normalizer *Normalizer, m MetricsRecorder) *Processor {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Processor{
		reader:     reader,
		publisher:  publisher,
		storage:    storage,
		normalizer: normalizer,
		metrics:    m,
	}
}

// ProcessRawEvents continuously reads raw events, normalizes them, appends
// them idempotently to the measurement log, and publishes new measurements.
func (p *Processor) ProcessRawEvents(ctx context.Context) error {
	slog.Info("Starting ingestion loop")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Ingestion loop stopped")
			return nil
		default:
			raw, msg, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if msg != nil {
					// Undecodable message: commit and move on, redelivery
					// cannot make it parseable.
					slog.Error("Discarding undecodable raw event", "error", err)
					p.metrics.RecordError()
					p.commit(ctx, msg)
					continue
				}
				slog.Error("Failed to read raw event", "error", err)
				continue
			}

			p.metrics.RecordReceived()

			if !p.processRawEvent(ctx, raw) {
				continue
			}

			// Commit offset only after the measurement is durable.
			// At-least-once: a crash before commit redelivers the raw event,
			// and the idempotency key makes redelivery a no-op.
			p.commit(ctx, msg)
		}
	}
}

// processRawEvent normalizes and persists a single raw event.
// Returns true if the message should be committed.
func (p *Processor) processRawEvent(ctx context.Context, raw *events.RawEvent) bool {
	startTime := time.Now()

	m, err := p.normalizer.Normalize(raw)
	if err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			// Genuinely invalid input: reject, log, commit. No retry.
			slog.Warn("Rejected malformed raw event",
				"category", raw.Category,
				"source", raw.Source,
				"scope", raw.Scope,
				"error", err,
			)
			p.metrics.IncrementCustom("raw_events_rejected")
			return true
		}
		slog.Error("Failed to normalize raw event", "error", err)
		p.metrics.RecordError()
		return false
	}

	// Append to the durable log. The idempotency key is the dedupe boundary.
	measurementID, err := p.storage.InsertMeasurementIdempotent(ctx, m)
	if err != nil {
		slog.Error("Failed to append measurement",
			"category", m.Category,
			"scope", m.Scope,
			"error", err,
		)
		p.metrics.RecordError()
		return false
	}

	// Only publish downstream when a new row was appended. A duplicate raw
	// event produces exactly one measurement and exactly one publish.
	if measurementID == nil {
		p.metrics.IncrementCustom("measurements_deduplicated")
		slog.Debug("Measurement already ingested, skipping publish",
			"category", m.Category,
			"scope", m.Scope,
			"idempotency_key", m.IdempotencyKey,
		)
		p.metrics.RecordProcessed(time.Since(startTime))
		return true
	}

	if err := p.publisher.Publish(ctx, m); err != nil {
		slog.Error("Failed to publish measurement",
			"measurement_id", m.MeasurementID,
			"error", err,
		)
		p.metrics.RecordError()
		// Do not commit: the appended row stays, redelivery republishes and
		// the log insert no-ops.
		return false
	}

	p.metrics.RecordPublished()
	p.metrics.IncrementCustom("measurements_ingested")
	p.metrics.RecordProcessed(time.Since(startTime))

	slog.Info("Ingested measurement",
		"measurement_id", m.MeasurementID,
		"category", m.Category,
		"scope", m.Scope,
		"value", m.Value,
	)

	return true
}

func (p *Processor) commit(ctx context.Context, msg *kafka.Message) {
	if err := p.reader.CommitMessage(ctx, msg); err != nil {
		slog.Error("Failed to commit offset", "error", err)
	}
}
