package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aiscientist/hazardwatch/internal/dispatch/channel"
	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/segmentio/kafka-go"
)

// FakeSender is a test fake for channel.Sender.
type FakeSender struct {
	ChannelName string

	mu       sync.Mutex
	Sent     []*channel.Notification
	SendErrs []error // consumed in order; nil means success
	calls    int
}

func (f *FakeSender) Name() string   { return f.ChannelName }
func (f *FakeSender) Target() string { return f.ChannelName + "-target" }

func (f *FakeSender) Send(ctx context.Context, n *channel.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.calls
	f.calls++
	if call < len(f.SendErrs) && f.SendErrs[call] != nil {
		return f.SendErrs[call]
	}
	f.Sent = append(f.Sent, n)
	return nil
}

func (f *FakeSender) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

// FakeStore is a test fake for AttemptStore.
type FakeStore struct {
	mu        sync.Mutex
	Status    string // returned for every alert; empty means not found
	StatusErr error
	Attempts  []*Attempt
	RecordErr error
}

func (f *FakeStore) RecordAttempt(ctx context.Context, a *Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RecordErr != nil {
		return f.RecordErr
	}
	f.Attempts = append(f.Attempts, a)
	return nil
}

func (f *FakeStore) GetAlertStatus(ctx context.Context, alertID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusErr != nil {
		return "", f.StatusErr
	}
	if f.Status == "" {
		return "", ErrAlertNotFound
	}
	return f.Status, nil
}

func (f *FakeStore) AttemptStatuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Attempts))
	for i, a := range f.Attempts {
		out[i] = a.Status
	}
	return out
}

func (f *FakeStore) AttemptStatusesFor(channel string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, a := range f.Attempts {
		if a.Channel == channel {
			out = append(out, a.Status)
		}
	}
	return out
}

// FakeReader is a test fake for DispatchReader.
type FakeReader struct {
	Messages  []*events.AlertDispatch
	ReadErr   error
	ReadIndex int
	Committed int
}

func (f *FakeReader) ReadMessage(ctx context.Context) (*events.AlertDispatch, *kafka.Message, error) {
	if f.ReadErr != nil {
		return nil, nil, f.ReadErr
	}
	if f.ReadIndex >= len(f.Messages) {
		return nil, nil, errors.New("no more messages")
	}
	ev := f.Messages[f.ReadIndex]
	f.ReadIndex++
	return ev, &kafka.Message{Offset: int64(f.ReadIndex)}, nil
}

func (f *FakeReader) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	f.Committed++
	return nil
}

func (f *FakeReader) Close() error { return nil }

// FakeMetrics counts metric calls.
type FakeMetrics struct {
	mu             sync.Mutex
	ReceivedCount  int
	ProcessedCount int
	PublishedCount int
	ErrorCount     int
	Custom         map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{Custom: make(map[string]int)}
}

func (f *FakeMetrics) RecordReceived() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReceivedCount++
}

func (f *FakeMetrics) RecordProcessed(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ProcessedCount++
}

func (f *FakeMetrics) RecordPublished() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PublishedCount++
}

func (f *FakeMetrics) RecordError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ErrorCount++
}

func (f *FakeMetrics) IncrementCustom(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Custom[name]++
}

func (f *FakeMetrics) CustomCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Custom[name]
}
