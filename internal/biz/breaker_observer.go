package biz

import (
	"context"
	"sync"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const notifyTimeout = 10 * time.Second

// NewObservedCircuitBreaker creates the request breaker and wires its transitions to the
// log, the audit trail, the CircuitBreakerState gauge and the notifier.
func NewObservedCircuitBreaker(c *conf.Resilience, sink MetricsSink, audit AuditLogger, notifier Notifier, logger log.Logger) *CircuitBreaker {
	cb := NewCircuitBreaker(BreakerConfigFrom(c))
	o := &breakerObserver{
		openTimeout: cb.OpenTimeout(),
		sink:        sink,
		audit:       audit,
		notifier:    notifier,
		logger:      pkglog.NewLogHelper(logger),
	}
	cb.OnStateChange(o.onTransition)
	return cb
}

type breakerObserver struct {
	openTimeout time.Duration
	sink        MetricsSink
	audit       AuditLogger
	notifier    Notifier
	logger      *pkglog.LogHelper

	mu       sync.Mutex
	openedAt time.Time
}

func (o *breakerObserver) onTransition(t model.BreakerTransition) {
	ctx := context.Background()

	o.logger.Breaker("circuit breaker state changed",
		"from", string(t.From),
		"to", string(t.To),
		"consecutive_failures", t.Failures)

	o.audit.LogBreakerTransition(ctx, t)

	if err := o.sink.Emit(ctx, []model.Datum{{
		Name:  model.MetricCircuitBreakerState,
		Value: t.To.GaugeValue(),
		Unit:  model.UnitNone,
	}}); err != nil {
		o.logger.Warnw("msg", "failed to emit breaker state", "error", err)
	}

	o.mu.Lock()
	var notify func(context.Context) error
	switch {
	case t.To == model.BreakerOpen && t.From == model.BreakerClosed:
		o.openedAt = t.At
		event := &model.CircuitOpenedEvent{
			From:     t.From,
			Failures: t.Failures,
			OpenedAt: t.At,
			RetryAt:  t.At.Add(o.openTimeout),
		}
		notify = func(ctx context.Context) error { return o.notifier.NotifyCircuitOpened(ctx, event) }
	case t.To == model.BreakerClosed:
		event := &model.CircuitClosedEvent{ClosedAt: t.At}
		if !o.openedAt.IsZero() {
			event.OpenDuration = t.At.Sub(o.openedAt)
		}
		o.openedAt = time.Time{}
		notify = func(ctx context.Context) error { return o.notifier.NotifyCircuitClosed(ctx, event) }
	}
	o.mu.Unlock()

	if notify == nil {
		return
	}
	// Delivery must not hold up the request that caused the transition.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := notify(ctx); err != nil {
			o.logger.Warnw("msg", "failed to deliver breaker notification", "to", string(t.To), "error", err)
		}
	}()
}
