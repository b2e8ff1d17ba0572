package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

// FakeExpirer is a test fake for Expirer.
type FakeExpirer struct {
	Expired int64
	Err     error
	Calls   int
}

func (f *FakeExpirer) ExpireOverdue(ctx context.Context) (int64, error) {
	f.Calls++
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Expired, nil
}

func TestSweeper_ExpiresOverdueAlerts(t *testing.T) {
	expirer := &FakeExpirer{Expired: 2}
	metrics := NewFakeMetrics()
	sweeper := NewSweeper(expirer, time.Minute, metrics)

	sweeper.sweep(context.Background())

	if expirer.Calls != 1 {
		t.Errorf("ExpireOverdue called %d times, want 1", expirer.Calls)
	}
	if metrics.Custom["alerts_expired"] != 2 {
		t.Errorf("expired counter = %d, want 2", metrics.Custom["alerts_expired"])
	}
}

func TestSweeper_RecordsError(t *testing.T) {
	expirer := &FakeExpirer{Err: errors.New("db down")}
	metrics := NewFakeMetrics()
	sweeper := NewSweeper(expirer, time.Minute, metrics)

	sweeper.sweep(context.Background())

	if metrics.ErrorCount != 1 {
		t.Errorf("error counter = %d, want 1", metrics.ErrorCount)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	sweeper := NewSweeper(&FakeExpirer{}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	sweeper := NewSweeper(&FakeExpirer{}, 0, nil)
	if sweeper.interval != DefaultSweepInterval {
		t.Errorf("interval = %v, want %v", sweeper.interval, DefaultSweepInterval)
	}
}
