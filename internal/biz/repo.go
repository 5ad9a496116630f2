package biz

import (
	"context"
	"time"

	"HealthPulse/internal/model"
)

// SampleRepo is the health sample store. Overload must be reported as an error for which
// pkgerrors.IsOverloadError holds.
type SampleRepo interface {
	Put(ctx context.Context, sample *model.HealthSample) error
	Get(ctx context.Context, serviceName string, since time.Time, limit int) ([]*model.HealthSample, error)
	ScanRecent(ctx context.Context, since time.Time, limit int) ([]*model.HealthSample, error)
	ListByType(ctx context.Context, metricType string, since, until time.Time) ([]*model.HealthSample, error)
}

// FallbackQueue is the durable at-least-once queue of deferred writes.
type FallbackQueue interface {
	Enqueue(ctx context.Context, sample *model.HealthSample, reason string) error
	// Claim returns nil, nil when the queue is empty.
	Claim(ctx context.Context) (*model.QueueLease, error)
	Ack(ctx context.Context, lease *model.QueueLease) error
	Nack(ctx context.Context, lease *model.QueueLease) error
	Recover(ctx context.Context) (int, error)
	Len(ctx context.Context) (int64, error)
}

// QueryCache caches metric query results in process.
type QueryCache interface {
	Get(key string) ([]*model.HealthSample, bool)
	Add(key string, samples []*model.HealthSample)
	Purge()
}

// ReportStore keeps the latest monitor report.
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.MonitorReport) error
	LatestReport(ctx context.Context) (*model.MonitorReport, error)
}

// MetricsSink receives derived numeric data points. At most model.MaxDatumBatch per call.
type MetricsSink interface {
	Emit(ctx context.Context, data []model.Datum) error
}

// AuditLogger records operational events. Calls never block.
type AuditLogger interface {
	LogBreakerTransition(ctx context.Context, t model.BreakerTransition)
	LogAlert(ctx context.Context, event *model.ErrorBudgetEvent)
	LogQueueFallback(ctx context.Context, sample *model.HealthSample, reason string)
}

// Notifier delivers alerts and breaker events to operators.
type Notifier interface {
	NotifyErrorBudget(ctx context.Context, event *model.ErrorBudgetEvent) error
	NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error
	NotifyCircuitClosed(ctx context.Context, event *model.CircuitClosedEvent) error
}

// Probe checks one dependency. A nil error means healthy.
type Probe interface {
	Name() string
	Check(ctx context.Context) (statusCode int, err error)
}

// emitBatched sends data to the sink in groups of at most model.MaxDatumBatch.
func emitBatched(ctx context.Context, sink MetricsSink, data []model.Datum) error {
	var firstErr error
	for start := 0; start < len(data); start += model.MaxDatumBatch {
		end := start + model.MaxDatumBatch
		if end > len(data) {
			end = len(data)
		}
		if err := sink.Emit(ctx, data[start:end]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
