package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
)

// Processor orchestrates evaluation: read measurement, run the rule engine,
// publish the resulting intent if any.
type Processor struct {
	reader    MeasurementReader
	publisher IntentPublisher
	engine    Evaluator
	metrics   MetricsRecorder
}

// NewProcessor creates a new evaluation processor with no-op metrics.
func NewProcessor(reader MeasurementReader, publisher IntentPublisher, engine Evaluator) *Processor {
	return NewProcessorWithMetrics(reader, publisher, engine, nil)
}

// NewProcessorWithMetrics creates a processor with the provided metrics
// recorder. If m is nil, a no-op implementation is used.
func NewProcessorWithMetrics(reader MeasurementReader, publisher IntentPublisher, engine Evaluator, m MetricsRecorder) *Processor {
	if m == nil {
		m = &NoOpMetrics{}
	}
	return &Processor{
		reader:    reader,
		publisher: publisher,
		engine:    engine,
		metrics:   m,
	}
}

// ProcessMeasurements continuously reads measurements from Kafka, evaluates
// them against the category rules, and publishes trigger intents.
func (p *Processor) ProcessMeasurements(ctx context.Context) error {
	slog.Info("Starting evaluation loop")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Evaluation loop stopped")
			return nil
		default:
			m, _, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Failed to read measurement", "error", err)
				p.metrics.RecordError()
				continue
			}

			p.metrics.RecordReceived()
			p.processMeasurement(ctx, m)

			// Offsets are committed automatically by kafka-go after
			// processing (CommitInterval is set in consumer config).
		}
	}
}

// processMeasurement evaluates a single measurement and publishes the
// resulting intent, if any.
func (p *Processor) processMeasurement(ctx context.Context, m *events.MeasurementEvent) {
	startTime := time.Now()

	slog.Debug("Received measurement",
		"measurement_id", m.MeasurementID,
		"category", m.Category,
		"scope", m.Scope,
		"value", m.Value,
	)

	intent, err := p.engine.Evaluate(ctx, m)
	if err != nil {
		// A broken measurement cannot be fixed by redelivery; log, count,
		// move on. The measurement itself is already durable in the log.
		slog.Error("Evaluation failed",
			"measurement_id", m.MeasurementID,
			"category", m.Category,
			"scope", m.Scope,
			"error", err,
		)
		p.metrics.RecordError()
		return
	}

	if intent == nil {
		p.metrics.IncrementCustom("measurements_without_intent")
		p.metrics.RecordProcessed(time.Since(startTime))
		return
	}

	if err := p.publisher.Publish(ctx, intent); err != nil {
		slog.Error("Failed to publish intent",
			"category", intent.Category,
			"scope", intent.Scope,
			"kind", intent.Kind,
			"error", err,
		)
		p.metrics.RecordError()
		return
	}

	p.metrics.RecordPublished()
	p.metrics.RecordProcessed(time.Since(startTime))

	slog.Info("Published trigger intent",
		"kind", intent.Kind,
		"category", intent.Category,
		"scope", intent.Scope,
		"severity", intent.Severity,
		"rule", intent.Rule,
	)
}
