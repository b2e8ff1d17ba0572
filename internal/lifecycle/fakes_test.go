package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// FakeReader is a test fake for IntentReader.
type FakeReader struct {
	Messages  []*events.TriggerIntent
	ReadErr   error
	ReadIndex int
	Committed int
	CommitErr error
}

func (f *FakeReader) ReadMessage(ctx context.Context) (*events.TriggerIntent, *kafka.Message, error) {
	if f.ReadErr != nil {
		return nil, nil, f.ReadErr
	}
	if f.ReadIndex >= len(f.Messages) {
		return nil, nil, errors.New("no more messages")
	}
	intent := f.Messages[f.ReadIndex]
	f.ReadIndex++
	return intent, &kafka.Message{Offset: int64(f.ReadIndex)}, nil
}

func (f *FakeReader) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed++
	return nil
}

func (f *FakeReader) Close() error { return nil }

// FakePublisher is a test fake for DispatchPublisher.
type FakePublisher struct {
	Published  []*events.AlertDispatch
	PublishErr error
}

func (f *FakePublisher) Publish(ctx context.Context, d *events.AlertDispatch) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Published = append(f.Published, d)
	return nil
}

func (f *FakePublisher) Close() error { return nil }

// FakeStore is a test fake for AlertStore with canned results.
type FakeStore struct {
	Alert     *Alert
	Reason    string
	UpsertErr error
	Upserts   []*events.TriggerIntent
}

func (f *FakeStore) Upsert(ctx context.Context, intent *events.TriggerIntent) (*Alert, string, error) {
	f.Upserts = append(f.Upserts, intent)
	if f.UpsertErr != nil {
		return nil, "", f.UpsertErr
	}
	return f.Alert, f.Reason, nil
}

// FakeMetrics counts metric calls.
type FakeMetrics struct {
	ReceivedCount  int
	ProcessedCount int
	PublishedCount int
	ErrorCount     int
	Custom         map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{Custom: make(map[string]int)}
}

func (f *FakeMetrics) RecordReceived()               { f.ReceivedCount++ }
func (f *FakeMetrics) RecordProcessed(time.Duration) { f.ProcessedCount++ }
func (f *FakeMetrics) RecordPublished()              { f.PublishedCount++ }
func (f *FakeMetrics) RecordError()                  { f.ErrorCount++ }
func (f *FakeMetrics) IncrementCustom(name string)   { f.Custom[name]++ }
