// Package ingest provides the ingestion normalizer: it converts heterogeneous
// raw events into canonical measurements and appends them to the durable,
// idempotent measurement log.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/google/uuid"
)

// ErrMalformedPayload marks a raw event that is genuinely invalid.
// Malformed events are rejected and logged, never retried.
var ErrMalformedPayload = errors.New("malformed payload")

const (
	// maxObservationAge rejects stale data.
	maxObservationAge = 24 * time.Hour
	// maxClockSkew tolerates slightly future-dated observations.
	maxClockSkew = 5 * time.Minute
)

// Normalizer converts raw events into canonical measurements.
// The now func is injectable for deterministic tests.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a normalizer using wall-clock time.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock creates a normalizer with a custom clock.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize validates a raw event and produces a canonical measurement.
// Units are stored as-is with their unit tag; no conversion is performed.
// Returns an error wrapping ErrMalformedPayload when the event is invalid.
func (n *Normalizer) Normalize(raw *events.RawEvent) (*events.MeasurementEvent, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: event is nil", ErrMalformedPayload)
	}
	if !events.ValidCategory(raw.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrMalformedPayload, raw.Category)
	}
	if raw.Source == "" {
		return nil, fmt.Errorf("%w: source cannot be empty", ErrMalformedPayload)
	}
	if raw.Scope == "" {
		return nil, fmt.Errorf("%w: scope cannot be empty", ErrMalformedPayload)
	}
	if raw.Value == nil {
		return nil, fmt.Errorf("%w: value is required", ErrMalformedPayload)
	}
	if raw.ObservedAt <= 0 {
		return nil, fmt.Errorf("%w: observed_at is required", ErrMalformedPayload)
	}

	observed := time.Unix(raw.ObservedAt, 0).UTC()
	now := n.now().UTC()
	if observed.Before(now.Add(-maxObservationAge)) {
		return nil, fmt.Errorf("%w: observation too old: %s", ErrMalformedPayload, observed.Format(time.RFC3339))
	}
	if observed.After(now.Add(maxClockSkew)) {
		return nil, fmt.Errorf("%w: observation in the future: %s", ErrMalformedPayload, observed.Format(time.RFC3339))
	}

	return &events.MeasurementEvent{
		MeasurementID:  uuid.NewString(),
		SchemaVersion:  events.SchemaVersion,
		Category:       raw.Category,
		Source:         raw.Source,
		Scope:          raw.Scope,
		ObservedAt:     raw.ObservedAt,
		Value:          *raw.Value,
		Unit:           raw.Unit,
		Attributes:     raw.Attributes,
		IdempotencyKey: IdempotencyKey(raw.Category, raw.Source, raw.Scope, raw.ObservedAt, *raw.Value),
	}, nil
}

// IdempotencyKey computes the deterministic key that makes at-least-once
// redelivery from upstream collectors safe. The value is rounded to four
// decimals so float jitter from re-serialization does not defeat dedup.
func IdempotencyKey(category, source, scope string, observedAt int64, value float64) string {
	rounded := math.Round(value*10000) / 10000
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%.4f", category, source, scope, observedAt, rounded)))
	return hex.EncodeToString(h[:])
}
