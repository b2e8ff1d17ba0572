package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
)

// StageProvider resolves configured flood stages for a water-level station.
type StageProvider interface {
	GetStages(ctx context.Context, station string) (*FloodStages, error)
}

// Engine maintains per-(category, scope) rolling state and evaluates rules
// against it. State is an owned, partitioned map: same-partition evaluation
// is serialized by a per-partition lock, cross-partition evaluation runs in
// parallel. Nothing outside the engine ever reads the windows.
type Engine struct {
	mu         sync.Mutex
	partitions map[string]*partition
	stages     StageProvider

	evaluationErrors atomic.Uint64
}

type partition struct {
	mu     sync.Mutex
	window *Window
}

// NewEngine creates a rule engine. stages may be nil when no water-level
// categories are ingested; the water rule is then skipped.
func NewEngine(stages StageProvider) *Engine {
	return &Engine{
		partitions: make(map[string]*partition),
		stages:     stages,
	}
}

// EvaluationErrors returns the number of rule evaluations skipped due to
// rule failures, for operator visibility.
func (e *Engine) EvaluationErrors() uint64 {
	return e.evaluationErrors.Load()
}

// Evaluate folds a measurement into its partition window and runs the
// category's rules. Returns zero or one trigger intent. Evaluation is
// deterministic given the same sequence of measurements per partition.
func (e *Engine) Evaluate(ctx context.Context, m *events.MeasurementEvent) (*events.TriggerIntent, error) {
	if m == nil {
		return nil, fmt.Errorf("measurement is nil")
	}
	if !events.ValidCategory(m.Category) {
		return nil, fmt.Errorf("unknown category: %q", m.Category)
	}

	part := e.partition(m.Category + "|" + m.Scope)

	// Single-writer lock on the partition's RuleState.
	part.mu.Lock()
	defer part.mu.Unlock()

	if part.window == nil {
		part.window = NewWindow(WindowSpan(m.Category))
	}
	part.window.Add(*m)

	decision := e.evaluateRules(ctx, m, part.window)

	switch decision.Kind {
	case DecisionTrigger:
		return &events.TriggerIntent{
			SchemaVersion: events.SchemaVersion,
			Kind:          events.IntentTrigger,
			Category:      m.Category,
			Scope:         m.Scope,
			Severity:      decision.Severity,
			MeasurementID: m.MeasurementID,
			Rule:          decision.Rule,
			EventTS:       m.ObservedAt,
		}, nil
	case DecisionClear:
		return &events.TriggerIntent{
			SchemaVersion: events.SchemaVersion,
			Kind:          events.IntentClear,
			Category:      m.Category,
			Scope:         m.Scope,
			MeasurementID: m.MeasurementID,
			Rule:          decision.Rule,
			EventTS:       m.ObservedAt,
		}, nil
	default:
		return nil, nil
	}
}

func (e *Engine) partition(key string) *partition {
	e.mu.Lock()
	defer e.mu.Unlock()
	part, ok := e.partitions[key]
	if !ok {
		part = &partition{}
		e.partitions[key] = part
	}
	return part
}

// evaluateRules runs every rule for the measurement's category and combines
// their decisions: the highest-severity trigger wins, then clear, then none.
// A failing rule is skipped for this cycle; the others still run.
func (e *Engine) evaluateRules(ctx context.Context, m *events.MeasurementEvent, w *Window) Decision {
	combined := None()

	for _, rule := range e.rulesFor(ctx, m) {
		decision, err := e.evaluateOne(rule, w)
		if err != nil {
			e.evaluationErrors.Add(1)
			slog.Warn("Rule evaluation failed, skipping rule for this cycle",
				"rule", rule.Name(),
				"category", m.Category,
				"scope", m.Scope,
				"measurement_id", m.MeasurementID,
				"error", err,
			)
			continue
		}

		switch decision.Kind {
		case DecisionTrigger:
			if combined.Kind != DecisionTrigger || events.CompareSeverity(decision.Severity, combined.Severity) > 0 {
				combined = decision
			}
		case DecisionClear:
			if combined.Kind == DecisionNone {
				combined = decision
			}
		}
	}

	return combined
}

// evaluateOne runs a single rule, converting panics into errors so one bad
// rule cannot take down the evaluation loop.
func (e *Engine) evaluateOne(rule Rule, w *Window) (decision Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			decision = None()
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Evaluate(w), nil
}

// rulesFor returns the rules applicable to a measurement's category.
func (e *Engine) rulesFor(ctx context.Context, m *events.MeasurementEvent) []Rule {
	switch m.Category {
	case events.CategoryKpIndex:
		return []Rule{KpIndexRule{}}
	case events.CategoryCME:
		return []Rule{CMERule{}}
	case events.CategoryEarthquake:
		return []Rule{EarthquakeRule{}}
	case events.CategoryWaterLevel:
		if e.stages == nil {
			return nil
		}
		stages, err := e.loadStages(ctx, m.Scope)
		if err != nil {
			e.evaluationErrors.Add(1)
			slog.Warn("Failed to load flood stages, skipping water rule for this cycle",
				"station", m.Scope,
				"error", err,
			)
			return nil
		}
		return []Rule{WaterLevelRule{Stages: stages}}
	default:
		return nil
	}
}

func (e *Engine) loadStages(ctx context.Context, station string) (*FloodStages, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return e.stages.GetStages(loadCtx, station)
}
