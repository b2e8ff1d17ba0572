// Package rules implements the rule evaluation engine: per-partition sliding
// windows over recent measurements and pure threshold rules that turn window
// contents into trigger decisions.
package rules

import (
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
)

// Window is the retained recent-history slice of measurements for one
// (category, scope) partition. A window with Span == 0 keeps only the latest
// measurement.
type Window struct {
	span  time.Duration
	items []events.MeasurementEvent
}

// NewWindow creates a window retaining measurements within span of the most
// recent observation. Span 0 means latest-value-only.
func NewWindow(span time.Duration) *Window {
	return &Window{span: span}
}

// Add appends a measurement and evicts entries that fell out of the span.
// Eviction is relative to the newest observation time, not wall clock, so
// replaying a historical stream produces identical windows.
func (w *Window) Add(m events.MeasurementEvent) {
	w.items = append(w.items, m)

	if w.span == 0 {
		w.items = w.items[len(w.items)-1:]
		return
	}

	newest := w.items[len(w.items)-1].ObservedAt
	cutoff := newest - int64(w.span.Seconds())
	firstLive := 0
	for i, item := range w.items {
		if item.ObservedAt >= cutoff {
			firstLive = i
			break
		}
	}
	w.items = w.items[firstLive:]
}

// Latest returns the most recently added measurement, or nil when empty.
func (w *Window) Latest() *events.MeasurementEvent {
	if len(w.items) == 0 {
		return nil
	}
	return &w.items[len(w.items)-1]
}

// Len returns the number of retained measurements.
func (w *Window) Len() int {
	return len(w.items)
}

// Items returns the retained measurements, oldest first.
func (w *Window) Items() []events.MeasurementEvent {
	return w.items
}
