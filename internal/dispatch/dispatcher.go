package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aiscientist/hazardwatch/internal/dispatch/breaker"
	"github.com/aiscientist/hazardwatch/internal/dispatch/channel"
	"github.com/aiscientist/hazardwatch/internal/dispatch/retry"
	"github.com/aiscientist/hazardwatch/internal/events"
)

// Worker pool sizing per channel.
const (
	defaultQueueSize   = 128
	defaultWorkerCount = 4
	defaultSendTimeout = 5 * time.Second
)

// ChannelsFor returns the delivery channels for a severity. Higher
// severities fan out to more intrusive channels.
func ChannelsFor(severity string) []string {
	switch severity {
	case events.SeverityCritical:
		return []string{"push", "email", "sms"}
	case events.SeverityWarning:
		return []string{"push", "email"}
	case events.SeverityInfo:
		return []string{"push"}
	default:
		return nil
	}
}

// Dispatcher fans dispatch events out to delivery channels. Each channel
// gets a bounded queue and a worker pool, so one slow channel cannot stall
// the others. Enqueue blocks when a queue is full, which backpressures
// Kafka consumption instead of dropping deliveries.
type Dispatcher struct {
	store    AttemptStore
	registry *channel.Registry
	metrics  MetricsRecorder

	retryCfg    retry.Config
	breakerCfg  breaker.Config
	queueSize   int
	workerCount int
	sendTimeout time.Duration

	queues   map[string]chan *channel.Notification
	breakers map[string]*breaker.Breaker
	wg       sync.WaitGroup
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets the per-channel queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) { d.queueSize = n }
}

// WithWorkerCount sets the per-channel worker pool size.
func WithWorkerCount(n int) Option {
	return func(d *Dispatcher) { d.workerCount = n }
}

// WithRetryConfig overrides the delivery retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(d *Dispatcher) { d.retryCfg = cfg }
}

// WithBreakerConfig overrides the circuit breaker configuration.
func WithBreakerConfig(cfg breaker.Config) Option {
	return func(d *Dispatcher) { d.breakerCfg = cfg }
}

// WithSendTimeout sets the per-attempt send timeout.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.sendTimeout = timeout }
}

// NewDispatcher creates a dispatcher over the registered channels. If m is
// nil, a no-op metrics implementation is used.
func NewDispatcher(store AttemptStore, registry *channel.Registry, m MetricsRecorder, opts ...Option) *Dispatcher {
	if m == nil {
		m = &NoOpMetrics{}
	}
	d := &Dispatcher{
		store:       store,
		registry:    registry,
		metrics:     m,
		retryCfg:    retry.DefaultConfig(),
		breakerCfg:  breaker.DefaultConfig(),
		queueSize:   defaultQueueSize,
		workerCount: defaultWorkerCount,
		sendTimeout: defaultSendTimeout,
		queues:      make(map[string]chan *channel.Notification),
		breakers:    make(map[string]*breaker.Breaker),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the per-channel worker pools. Workers stop when the
// context is cancelled; Wait blocks until they have drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, name := range d.registry.List() {
		d.queues[name] = make(chan *channel.Notification, d.queueSize)
		d.breakers[name] = breaker.New(name, d.breakerCfg)

		for i := 0; i < d.workerCount; i++ {
			d.wg.Add(1)
			go d.worker(ctx, name)
		}

		slog.Info("Started delivery workers",
			"channel", name,
			"workers", d.workerCount,
			"queue_size", d.queueSize,
		)
	}
}

// Wait blocks until all workers have stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue routes a dispatch event to the channels for its severity. Blocks
// when a channel queue is full until space frees up or the context is
// cancelled.
func (d *Dispatcher) Enqueue(ctx context.Context, ev *events.AlertDispatch) error {
	n := &channel.Notification{
		AlertID:  ev.AlertID,
		Category: ev.Category,
		Scope:    ev.Scope,
		Severity: ev.Severity,
		Reason:   ev.Reason,
		EventTS:  ev.EventTS,
	}

	routes := ChannelsFor(ev.Severity)
	if len(routes) == 0 {
		return fmt.Errorf("no channels for severity %q", ev.Severity)
	}

	for _, name := range routes {
		queue, ok := d.queues[name]
		if !ok {
			d.metrics.IncrementCustom("deliveries_unrouted")
			slog.Warn("Channel not registered, skipping",
				"channel", name,
				"alert_id", ev.AlertID,
			)
			continue
		}
		select {
		case queue <- n:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (d *Dispatcher) worker(ctx context.Context, name string) {
	defer d.wg.Done()

	sender, _ := d.registry.Get(name)
	queue := d.queues[name]
	brk := d.breakers[name]

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-queue:
			d.deliver(ctx, sender, brk, n)
		}
	}
}

// deliver runs one delivery: cancellation check, breaker check, then the
// send with retry. Every attempt lands in the delivery log.
func (d *Dispatcher) deliver(ctx context.Context, sender channel.Sender, brk *breaker.Breaker, n *channel.Notification) {
	startTime := time.Now()

	// An alert can expire or be acknowledged while its delivery sits in the
	// queue; such deliveries are cancelled, not sent.
	status, err := d.store.GetAlertStatus(ctx, n.AlertID)
	if err != nil && !errors.Is(err, ErrAlertNotFound) {
		// Status lookup is advisory. When the store is unreachable the
		// delivery still goes out.
		slog.Warn("Alert status lookup failed, delivering anyway",
			"alert_id", n.AlertID,
			"error", err,
		)
		status = ""
	} else if err != nil {
		status = ""
	}
	if status != "" && status != "ACTIVE" {
		d.recordAttempt(ctx, sender, n, AttemptSkipped, 0, fmt.Sprintf("alert is %s", status))
		d.metrics.IncrementCustom("deliveries_cancelled")
		slog.Info("Delivery cancelled, alert no longer active",
			"alert_id", n.AlertID,
			"channel", sender.Name(),
			"status", status,
		)
		return
	}

	if err := brk.Allow(); err != nil {
		d.recordAttempt(ctx, sender, n, AttemptSkipped, 0, err.Error())
		d.metrics.IncrementCustom("deliveries_short_circuited")
		return
	}

	operation := fmt.Sprintf("send_%s_%s", sender.Name(), n.AlertID)
	err = retry.WithRetry(ctx, d.retryCfg, operation, func(attempt int) error {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()

		sendErr := sender.Send(sendCtx, n)
		if sendErr != nil {
			d.recordAttempt(ctx, sender, n, AttemptFailed, attempt, sendErr.Error())
			return sendErr
		}
		d.recordAttempt(ctx, sender, n, AttemptSent, attempt, "")
		return nil
	})

	if err != nil {
		brk.RecordFailure()
		d.metrics.RecordError()
		d.metrics.IncrementCustom("deliveries_failed")
		slog.Error("Delivery failed",
			"alert_id", n.AlertID,
			"channel", sender.Name(),
			"error", err,
		)
		return
	}

	brk.RecordSuccess()
	d.metrics.RecordPublished()
	d.metrics.RecordProcessed(time.Since(startTime))
}

func (d *Dispatcher) recordAttempt(ctx context.Context, sender channel.Sender, n *channel.Notification, status string, attempt int, errText string) {
	err := d.store.RecordAttempt(ctx, &Attempt{
		AlertID: n.AlertID,
		Channel: sender.Name(),
		Target:  sender.Target(),
		Status:  status,
		Attempt: attempt,
		Error:   errText,
	})
	if err != nil {
		slog.Error("Failed to record delivery attempt",
			"alert_id", n.AlertID,
			"channel", sender.Name(),
			"error", err,
		)
	}
}
