// Package events defines the event structures flowing between pipeline stages:
// raw.events -> measurements -> alert.intents -> alerts.dispatch.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the current wire schema version for all pipeline events.
const SchemaVersion = 1

// Measurement categories.
const (
	CategoryKpIndex    = "KP_INDEX"
	CategoryCME        = "CME"
	CategoryEarthquake = "EARTHQUAKE"
	CategoryWaterLevel = "WATER_LEVEL"
)

// Categories lists all known measurement categories.
var Categories = []string{
	CategoryKpIndex,
	CategoryCME,
	CategoryEarthquake,
	CategoryWaterLevel,
}

// ValidCategory reports whether category is one of the known categories.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// RawEvent represents an unnormalized reading from an upstream collector,
// consumed from the raw.events topic. Payload is source-specific and opaque
// to everything except the normalizer.
type RawEvent struct {
	SchemaVersion int               `json:"schema_version"`
	Category      string            `json:"category"`
	Source        string            `json:"source"`
	Scope         string            `json:"scope"`
	ObservedAt    int64             `json:"observed_at"` // Unix seconds
	Value         *float64          `json:"value,omitempty"`
	Unit          string            `json:"unit,omitempty"`
	Payload       json.RawMessage   `json:"payload,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// MeasurementEvent is the canonical measurement published to the measurements
// topic after idempotent ingestion. Immutable once published.
type MeasurementEvent struct {
	MeasurementID  string            `json:"measurement_id"`
	SchemaVersion  int               `json:"schema_version"`
	Category       string            `json:"category"`
	Source         string            `json:"source"`
	Scope          string            `json:"scope"`
	ObservedAt     int64             `json:"observed_at"`
	Value          float64           `json:"value"`
	Unit           string            `json:"unit,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// PartitionKey returns the Kafka message key for a measurement. All
// measurements of one (category, scope) pair hash to one partition, which is
// what guarantees in-order, serialized evaluation per partition.
func (m *MeasurementEvent) PartitionKey() string {
	return m.Category + "|" + m.Scope
}

// Decision kinds emitted by the rule engine.
const (
	IntentTrigger = "TRIGGER"
	IntentClear   = "CLEAR"
)

// TriggerIntent is the rule engine's output signaling a condition transition,
// published to the alert.intents topic and consumed by the lifecycle store.
type TriggerIntent struct {
	SchemaVersion int    `json:"schema_version"`
	Kind          string `json:"kind"` // TRIGGER or CLEAR
	Category      string `json:"category"`
	Scope         string `json:"scope"`
	Severity      string `json:"severity,omitempty"` // empty for CLEAR
	MeasurementID string `json:"measurement_id"`
	Rule          string `json:"rule"`
	EventTS       int64  `json:"event_ts"`
}

// PartitionKey returns the Kafka message key for an intent.
func (i *TriggerIntent) PartitionKey() string {
	return i.Category + "|" + i.Scope
}

// Dispatch reasons.
const (
	DispatchReasonCreated   = "CREATED"
	DispatchReasonEscalated = "ESCALATED"
)

// AlertDispatch is published to the alerts.dispatch topic when an alert is
// created or escalated. Mere expiry extensions never produce a dispatch.
type AlertDispatch struct {
	AlertID       string `json:"alert_id"`
	SchemaVersion int    `json:"schema_version"`
	Category      string `json:"category"`
	Scope         string `json:"scope"`
	Severity      string `json:"severity"`
	Reason        string `json:"reason"` // CREATED or ESCALATED
	EventTS       int64  `json:"event_ts"`
}

// NewAlertDispatch builds a dispatch event for a created or escalated alert.
func NewAlertDispatch(alertID, category, scope, severity, reason string) *AlertDispatch {
	return &AlertDispatch{
		AlertID:       alertID,
		SchemaVersion: SchemaVersion,
		Category:      category,
		Scope:         scope,
		Severity:      severity,
		Reason:        reason,
		EventTS:       time.Now().Unix(),
	}
}

// Validate checks intent field consistency.
func (i *TriggerIntent) Validate() error {
	if i.Kind != IntentTrigger && i.Kind != IntentClear {
		return fmt.Errorf("unknown intent kind: %q", i.Kind)
	}
	if !ValidCategory(i.Category) {
		return fmt.Errorf("unknown category: %q", i.Category)
	}
	if i.Scope == "" {
		return fmt.Errorf("scope cannot be empty")
	}
	if i.Kind == IntentTrigger && !ValidSeverity(i.Severity) {
		return fmt.Errorf("trigger intent has invalid severity: %q", i.Severity)
	}
	return nil
}
