package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
)

func triggerIntent(severity string) *events.TriggerIntent {
	return &events.TriggerIntent{
		SchemaVersion: events.SchemaVersion,
		Kind:          events.IntentTrigger,
		Category:      events.CategoryKpIndex,
		Scope:         "global",
		Severity:      severity,
		MeasurementID: "m1",
		Rule:          "kp_threshold",
		EventTS:       1700000000,
	}
}

func clearIntent() *events.TriggerIntent {
	return &events.TriggerIntent{
		SchemaVersion: events.SchemaVersion,
		Kind:          events.IntentClear,
		Category:      events.CategoryKpIndex,
		Scope:         "global",
		MeasurementID: "m2",
		Rule:          "kp_threshold",
		EventTS:       1700000100,
	}
}

func activeAlert(severity string) *Alert {
	now := time.Now()
	return &Alert{
		AlertID:                  "a1",
		Category:                 events.CategoryKpIndex,
		Scope:                    "global",
		Severity:                 severity,
		Status:                   StatusActive,
		TriggeringMeasurementIDs: []string{"m1"},
		CreatedAt:                now,
		UpdatedAt:                now,
		ExpiresAt:                now.Add(3 * time.Hour),
	}
}

func TestProcessIntent_CreatedPublishesDispatch(t *testing.T) {
	publisher := &FakePublisher{}
	store := &FakeStore{Alert: activeAlert(events.SeverityWarning), Reason: events.DispatchReasonCreated}
	metrics := NewFakeMetrics()
	proc := NewProcessorWithMetrics(&FakeReader{}, publisher, store, metrics)

	committable := proc.processIntent(context.Background(), triggerIntent(events.SeverityWarning))

	if !committable {
		t.Fatal("processIntent() = false, want commit")
	}
	if len(publisher.Published) != 1 {
		t.Fatalf("published %d dispatches, want 1", len(publisher.Published))
	}
	d := publisher.Published[0]
	if d.AlertID != "a1" || d.Reason != events.DispatchReasonCreated {
		t.Errorf("dispatch = %+v", d)
	}
	if metrics.PublishedCount != 1 {
		t.Errorf("published counter = %d, want 1", metrics.PublishedCount)
	}
}

func TestProcessIntent_EscalationPublishesDispatch(t *testing.T) {
	publisher := &FakePublisher{}
	store := &FakeStore{Alert: activeAlert(events.SeverityCritical), Reason: events.DispatchReasonEscalated}
	proc := NewProcessor(&FakeReader{}, publisher, store)

	proc.processIntent(context.Background(), triggerIntent(events.SeverityCritical))

	if len(publisher.Published) != 1 {
		t.Fatalf("published %d dispatches, want 1", len(publisher.Published))
	}
	if publisher.Published[0].Severity != events.SeverityCritical {
		t.Errorf("severity = %q", publisher.Published[0].Severity)
	}
	if publisher.Published[0].Reason != events.DispatchReasonEscalated {
		t.Errorf("reason = %q", publisher.Published[0].Reason)
	}
}

func TestProcessIntent_ExtensionDoesNotDispatch(t *testing.T) {
	publisher := &FakePublisher{}
	store := &FakeStore{Alert: activeAlert(events.SeverityWarning), Reason: ""}
	metrics := NewFakeMetrics()
	proc := NewProcessorWithMetrics(&FakeReader{}, publisher, store, metrics)

	committable := proc.processIntent(context.Background(), triggerIntent(events.SeverityWarning))

	if !committable {
		t.Fatal("processIntent() = false, want commit")
	}
	if len(publisher.Published) != 0 {
		t.Errorf("published %d dispatches, want 0", len(publisher.Published))
	}
	if metrics.Custom["alerts_extended"] != 1 {
		t.Errorf("extended counter = %d, want 1", metrics.Custom["alerts_extended"])
	}
}

func TestProcessIntent_ClearDoesNotDispatch(t *testing.T) {
	publisher := &FakePublisher{}
	cleared := activeAlert(events.SeverityWarning)
	cleared.Status = StatusExpired
	store := &FakeStore{Alert: cleared, Reason: ""}
	metrics := NewFakeMetrics()
	proc := NewProcessorWithMetrics(&FakeReader{}, publisher, store, metrics)

	proc.processIntent(context.Background(), clearIntent())

	if len(publisher.Published) != 0 {
		t.Errorf("published %d dispatches, want 0", len(publisher.Published))
	}
	if metrics.Custom["alerts_cleared"] != 1 {
		t.Errorf("cleared counter = %d, want 1", metrics.Custom["alerts_cleared"])
	}
}

func TestProcessIntent_ClearWithoutActiveAlertIsNoop(t *testing.T) {
	store := &FakeStore{Alert: nil, Reason: ""}
	metrics := NewFakeMetrics()
	proc := NewProcessorWithMetrics(&FakeReader{}, &FakePublisher{}, store, metrics)

	committable := proc.processIntent(context.Background(), clearIntent())

	if !committable {
		t.Fatal("processIntent() = false, want commit")
	}
	if metrics.Custom["intents_noop"] != 1 {
		t.Errorf("noop counter = %d, want 1", metrics.Custom["intents_noop"])
	}
}

func TestProcessIntent_InvalidIntentCommitted(t *testing.T) {
	store := &FakeStore{}
	metrics := NewFakeMetrics()
	proc := NewProcessorWithMetrics(&FakeReader{}, &FakePublisher{}, store, metrics)

	bad := triggerIntent("SHOUTING")
	committable := proc.processIntent(context.Background(), bad)

	if !committable {
		t.Fatal("invalid intent should be committed, not retried")
	}
	if len(store.Upserts) != 0 {
		t.Errorf("store called %d times for invalid intent", len(store.Upserts))
	}
	if metrics.Custom["intents_rejected"] != 1 {
		t.Errorf("rejected counter = %d, want 1", metrics.Custom["intents_rejected"])
	}
}

func TestProcessIntent_StoreErrorBlocksCommit(t *testing.T) {
	store := &FakeStore{UpsertErr: errors.New("db down")}
	metrics := NewFakeMetrics()
	proc := NewProcessorWithMetrics(&FakeReader{}, &FakePublisher{}, store, metrics)

	committable := proc.processIntent(context.Background(), triggerIntent(events.SeverityWarning))

	if committable {
		t.Fatal("processIntent() = true after store error, want retry")
	}
	if metrics.ErrorCount != 1 {
		t.Errorf("error counter = %d, want 1", metrics.ErrorCount)
	}
}

func TestProcessIntent_PublishErrorBlocksCommit(t *testing.T) {
	publisher := &FakePublisher{PublishErr: errors.New("kafka down")}
	store := &FakeStore{Alert: activeAlert(events.SeverityWarning), Reason: events.DispatchReasonCreated}
	proc := NewProcessor(&FakeReader{}, publisher, store)

	committable := proc.processIntent(context.Background(), triggerIntent(events.SeverityWarning))

	if committable {
		t.Fatal("processIntent() = true after publish error, want retry")
	}
}

func TestProcessIntents_StopsOnContextCancel(t *testing.T) {
	reader := &FakeReader{Messages: []*events.TriggerIntent{triggerIntent(events.SeverityWarning)}}
	proc := NewProcessor(reader, &FakePublisher{}, &FakeStore{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- proc.ProcessIntents(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ProcessIntents() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessIntents() did not stop after cancel")
	}
}
