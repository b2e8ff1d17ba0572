package rules

import (
	"strconv"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
)

// Decision kinds.
const (
	DecisionNone    = "NONE"
	DecisionTrigger = "TRIGGER"
	DecisionClear   = "CLEAR"
)

// Decision is the output of a rule: no change, trigger at a severity, or
// clear any active alert for the partition.
type Decision struct {
	Kind     string
	Severity string
	Rule     string
}

// None reports no condition transition.
func None() Decision { return Decision{Kind: DecisionNone} }

// Trigger reports a triggered condition at the given severity.
func Trigger(severity, rule string) Decision {
	return Decision{Kind: DecisionTrigger, Severity: severity, Rule: rule}
}

// Clear reports that the condition has subsided.
func Clear(rule string) Decision {
	return Decision{Kind: DecisionClear, Rule: rule}
}

// Rule is a pure function from window state to a decision. Rules must be
// deterministic given the same window contents; the engine relies on this
// for replay.
type Rule interface {
	Name() string
	Evaluate(w *Window) Decision
}

// Kp index thresholds (planetary geomagnetic activity).
const (
	kpCritical = 7.0
	kpWarning  = 5.0
	kpClear    = 4.0
)

// KpIndexRule triggers on geomagnetic storm levels from the latest Kp value.
type KpIndexRule struct{}

func (KpIndexRule) Name() string { return "kp_threshold" }

// Evaluate applies: value >= 7 CRITICAL, >= 5 WARNING, < 4 clears, [4, 5)
// leaves any active alert untouched until it expires or clears.
func (r KpIndexRule) Evaluate(w *Window) Decision {
	latest := w.Latest()
	if latest == nil {
		return None()
	}
	switch {
	case latest.Value >= kpCritical:
		return Trigger(events.SeverityCritical, r.Name())
	case latest.Value >= kpWarning:
		return Trigger(events.SeverityWarning, r.Name())
	case latest.Value < kpClear:
		return Clear(r.Name())
	default:
		return None()
	}
}

// CME speed thresholds in km/s.
const (
	cmeCriticalSpeed = 2000.0
	cmeWarningSpeed  = 1000.0
)

// CMERule triggers on fast coronal mass ejections. CME alerts are cleared by
// TTL expiry only; a slow follow-up ejection is not an all-clear signal.
type CMERule struct{}

func (CMERule) Name() string { return "cme_speed" }

func (r CMERule) Evaluate(w *Window) Decision {
	latest := w.Latest()
	if latest == nil {
		return None()
	}
	switch {
	case latest.Value >= cmeCriticalSpeed:
		return Trigger(events.SeverityCritical, r.Name())
	case latest.Value >= cmeWarningSpeed:
		return Trigger(events.SeverityWarning, r.Name())
	default:
		return None()
	}
}

// Earthquake thresholds.
const (
	quakeTsunamiMagnitude = 6.0
	quakeTsunamiDepthKm   = 70.0
	quakeWarningMagnitude = 5.0
)

// EarthquakeRule evaluates the tsunami-risk composite rule and the plain
// magnitude threshold. Magnitude is the measurement value; depth and coastal
// proximity travel as measurement attributes.
type EarthquakeRule struct{}

func (EarthquakeRule) Name() string { return "earthquake_magnitude" }

func (r EarthquakeRule) Evaluate(w *Window) Decision {
	latest := w.Latest()
	if latest == nil {
		return None()
	}

	magnitude := latest.Value
	depth, hasDepth := attrFloat(latest.Attributes, "depth_km")
	coastal := latest.Attributes["coastal"] == "true"

	// Tsunami-risk composite: strong, shallow, near a coast.
	if magnitude >= quakeTsunamiMagnitude && hasDepth && depth <= quakeTsunamiDepthKm && coastal {
		return Trigger(events.SeverityCritical, "earthquake_tsunami_risk")
	}
	if magnitude >= quakeWarningMagnitude {
		return Trigger(events.SeverityWarning, r.Name())
	}
	return None()
}

// FloodStages holds the configured flood stage levels for one station, in
// the station's native unit.
type FloodStages struct {
	Action   float64 `json:"action"`
	Minor    float64 `json:"minor"`
	Moderate float64 `json:"moderate"`
	Major    float64 `json:"major"`
}

// Tier returns the flood tier name for a level, or "" when below action stage.
func (s *FloodStages) Tier(level float64) string {
	switch {
	case level >= s.Major:
		return "MAJOR"
	case level >= s.Moderate:
		return "MODERATE"
	case level >= s.Minor:
		return "MINOR"
	case level >= s.Action:
		return "ACTION"
	default:
		return ""
	}
}

// WaterLevelRule compares the latest water level against the station's
// configured flood stages. ACTION and MINOR map to WARNING, MODERATE and
// MAJOR to CRITICAL. A level below action stage clears the alert.
type WaterLevelRule struct {
	Stages *FloodStages
}

func (WaterLevelRule) Name() string { return "water_level_flood_stage" }

func (r WaterLevelRule) Evaluate(w *Window) Decision {
	latest := w.Latest()
	if latest == nil || r.Stages == nil {
		return None()
	}

	switch r.Stages.Tier(latest.Value) {
	case "MAJOR", "MODERATE":
		return Trigger(events.SeverityCritical, r.Name())
	case "MINOR", "ACTION":
		return Trigger(events.SeverityWarning, r.Name())
	default:
		return Clear(r.Name())
	}
}

// WindowSpan returns the configured retention span for a category's window.
func WindowSpan(category string) time.Duration {
	switch category {
	case events.CategoryEarthquake:
		return 24 * time.Hour
	case events.CategoryCME:
		return 6 * time.Hour
	default:
		// KP_INDEX and WATER_LEVEL are latest-value-only
		return 0
	}
}

func attrFloat(attrs map[string]string, key string) (float64, bool) {
	raw, ok := attrs[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
