package api

import (
	"context"
	"time"

	"github.com/aiscientist/hazardwatch/internal/lifecycle"
	"github.com/aiscientist/hazardwatch/pkg/metrics"
)

// AlertRepository is the alert store surface the API needs.
type AlertRepository interface {
	ListAlerts(ctx context.Context, filter lifecycle.ListFilter) ([]*lifecycle.Alert, error)
	GetAlert(ctx context.Context, alertID string) (*lifecycle.Alert, error)
	Acknowledge(ctx context.Context, alertID, actor string) (*lifecycle.Alert, error)
}

// ServiceMetricsReader reads pipeline service metrics.
type ServiceMetricsReader interface {
	GetAllServiceMetrics(ctx context.Context) (map[string]*metrics.ServiceMetrics, error)
}

// MetricsRecorder records request metrics.
type MetricsRecorder interface {
	RecordReceived()
	RecordProcessed(latency time.Duration)
	RecordError()
	IncrementCustom(name string)
}

// NoOpMetrics is a MetricsRecorder that does nothing.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordReceived()               {}
func (NoOpMetrics) RecordProcessed(time.Duration) {}
func (NoOpMetrics) RecordError()                  {}
func (NoOpMetrics) IncrementCustom(string)        {}
