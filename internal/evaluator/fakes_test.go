package evaluator

import (
	"context"
	"errors"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// FakeReader is a test fake for MeasurementReader.
type FakeReader struct {
	Messages  []*events.MeasurementEvent
	ReadErr   error
	ReadIndex int
}

func (f *FakeReader) ReadMessage(ctx context.Context) (*events.MeasurementEvent, *kafka.Message, error) {
	if f.ReadErr != nil {
		return nil, nil, f.ReadErr
	}
	if f.ReadIndex >= len(f.Messages) {
		return nil, nil, errors.New("no more messages")
	}
	m := f.Messages[f.ReadIndex]
	f.ReadIndex++
	return m, &kafka.Message{}, nil
}

func (f *FakeReader) Close() error { return nil }

// FakePublisher is a test fake for IntentPublisher.
type FakePublisher struct {
	Published  []*events.TriggerIntent
	PublishErr error
}

func (f *FakePublisher) Publish(ctx context.Context, intent *events.TriggerIntent) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Published = append(f.Published, intent)
	return nil
}

func (f *FakePublisher) Close() error { return nil }

// FakeEngine is a test fake for Evaluator.
type FakeEngine struct {
	Intents map[string]*events.TriggerIntent // keyed by measurement ID
	Err     error
	Calls   int
}

func (f *FakeEngine) Evaluate(ctx context.Context, m *events.MeasurementEvent) (*events.TriggerIntent, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Intents[m.MeasurementID], nil
}
