package thresholds

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeKV is an in-memory KV for cache tests.
type fakeKV struct {
	data    map[string]string
	getErr  error
	setErr  error
	getOps  int
	setOps  int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.getOps++
	if f.getErr != nil {
		return "", f.getErr
	}
	val, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return val, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.setOps++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func TestReadThrough_MissThenHit(t *testing.T) {
	kv := newFakeKV()
	loads := 0
	cache := NewReadThrough(kv, "t:", time.Minute, func(ctx context.Context, key string) (string, error) {
		loads++
		return "loaded-" + key, nil
	})

	val, hit, err := cache.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("first Get() reported hit, want miss")
	}
	if val != "loaded-k1" {
		t.Errorf("val = %q", val)
	}

	val, hit, err = cache.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Error("second Get() reported miss, want hit")
	}
	if val != "loaded-k1" {
		t.Errorf("val = %q", val)
	}
	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
}

func TestReadThrough_LoaderFailure(t *testing.T) {
	kv := newFakeKV()
	wantErr := errors.New("db down")
	cache := NewReadThrough(kv, "t:", time.Minute, func(ctx context.Context, key string) (string, error) {
		return "", wantErr
	})

	if _, _, err := cache.Get(context.Background(), "k1"); !errors.Is(err, wantErr) {
		t.Errorf("Get() error = %v, want wrapped loader error", err)
	}
}

func TestReadThrough_DegradedCacheFallsBackToLoader(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("redis down")
	kv.setErr = errors.New("redis down")
	cache := NewReadThrough(kv, "t:", time.Minute, func(ctx context.Context, key string) (string, error) {
		return "fresh", nil
	})

	val, hit, err := cache.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get() error = %v, want loader fallback", err)
	}
	if hit || val != "fresh" {
		t.Errorf("Get() = (%q, %v), want (fresh, false)", val, hit)
	}
}

func TestCachedProvider_GetStages(t *testing.T) {
	kv := newFakeKV()
	provider := NewCachedProviderWithKV(kv, func(ctx context.Context, station string) (string, error) {
		if station != "station-1" {
			return "", errors.New("station not found")
		}
		return `{"action":2,"minor":3,"moderate":4,"major":5}`, nil
	})

	stages, err := provider.GetStages(context.Background(), "station-1")
	if err != nil {
		t.Fatalf("GetStages() error = %v", err)
	}
	if stages.Moderate != 4 || stages.Major != 5 {
		t.Errorf("stages = %+v", stages)
	}

	if _, err := provider.GetStages(context.Background(), "station-404"); err == nil {
		t.Error("GetStages() error = nil for unknown station")
	}
}
