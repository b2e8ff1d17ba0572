package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// FakeReader is a test fake for RawEventReader.
type FakeReader struct {
	Messages  []*events.RawEvent
	ReadErr   error
	CommitErr error
	ReadIndex int
	Committed []kafka.Message
}

func (f *FakeReader) ReadMessage(ctx context.Context) (*events.RawEvent, *kafka.Message, error) {
	if f.ReadErr != nil {
		return nil, nil, f.ReadErr
	}
	if f.ReadIndex >= len(f.Messages) {
		return nil, nil, errors.New("no more messages")
	}
	msg := f.Messages[f.ReadIndex]
	f.ReadIndex++
	return msg, &kafka.Message{}, nil
}

func (f *FakeReader) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	if f.CommitErr != nil {
		return f.CommitErr
	}
	f.Committed = append(f.Committed, *msg)
	return nil
}

func (f *FakeReader) Close() error { return nil }

// FakePublisher is a test fake for MeasurementPublisher.
type FakePublisher struct {
	Published  []*events.MeasurementEvent
	PublishErr error
}

func (f *FakePublisher) Publish(ctx context.Context, m *events.MeasurementEvent) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Published = append(f.Published, m)
	return nil
}

func (f *FakePublisher) Close() error { return nil }

// FakeStorage is a test fake for MeasurementStorage. It deduplicates on the
// idempotency key like the real log does.
type FakeStorage struct {
	Inserted  []*events.MeasurementEvent
	Keys      map[string]bool
	InsertErr error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{Keys: make(map[string]bool)}
}

func (f *FakeStorage) InsertMeasurementIdempotent(ctx context.Context, m *events.MeasurementEvent) (*string, error) {
	if f.InsertErr != nil {
		return nil, f.InsertErr
	}
	if f.Keys[m.IdempotencyKey] {
		return nil, nil
	}
	f.Keys[m.IdempotencyKey] = true
	f.Inserted = append(f.Inserted, m)
	id := m.MeasurementID
	return &id, nil
}

func (f *FakeStorage) Close() error { return nil }

// FakeMetrics is a test fake for MetricsRecorder that counts calls.
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
