package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
	pkgerrors "HealthPulse/pkg/errors"
	pkglog "HealthPulse/pkg/log"
	"HealthPulse/pkg/metadata"
	"HealthPulse/pkg/validate"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// WriteOutcome distinguishes a direct store write from a queued one.
type WriteOutcome string

// Write outcomes.
const (
	WriteAcceptedDirect WriteOutcome = "ACCEPTED_DIRECT"
	WriteAcceptedQueued WriteOutcome = "ACCEPTED_QUEUED"
)

const queueReasonOverload = "store overloaded after retries"

// MetricInput is a metric submission.
type MetricInput struct {
	ServiceName string                 `json:"serviceName" validate:"required,max=128,identifier"`
	MetricType  string                 `json:"metricType" validate:"required,max=64"`
	Value       *float64               `json:"value" validate:"required"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// WriteResult is an accepted write.
type WriteResult struct {
	Outcome  WriteOutcome
	Sample   *model.HealthSample
	Attempts int
}

// MetricWriter is the resilient write path: validate, write with backoff on overload,
// then fall back to the durable queue.
type MetricWriter struct {
	repo        SampleRepo
	queue       FallbackQueue
	cache       QueryCache
	backoff     *Backoff
	sink        MetricsSink
	audit       AuditLogger
	environment string
	now         func() time.Time
	logger      *pkglog.LogHelper
}

// NewMetricWriter creates a MetricWriter.
func NewMetricWriter(
	repo SampleRepo,
	queue FallbackQueue,
	cache QueryCache,
	backoff *Backoff,
	sink MetricsSink,
	audit AuditLogger,
	c *conf.Monitor,
	logger log.Logger,
) *MetricWriter {
	env := ""
	if c != nil {
		env = c.Environment
	}
	return &MetricWriter{
		repo:        repo,
		queue:       queue,
		cache:       cache,
		backoff:     backoff,
		sink:        sink,
		audit:       audit,
		environment: env,
		now:         time.Now,
		logger:      pkglog.NewLogHelper(logger),
	}
}

// Validate checks a submission without writing it.
func (w *MetricWriter) Validate(in *MetricInput) error {
	if in == nil {
		return ErrValidation("Request body is required")
	}
	if err := validate.Struct(in); err != nil {
		return ErrValidation(err.Error())
	}
	if err := metadata.Validate(in.Metadata); err != nil {
		return ErrValidation(err.Error())
	}
	return nil
}

// Write records one metric. Exactly one of a direct write or an enqueue succeeds for an
// accepted call; each store attempt reuses the same sample ID.
func (w *MetricWriter) Write(ctx context.Context, in *MetricInput) (*WriteResult, error) {
	if err := w.Validate(in); err != nil {
		return nil, err
	}

	sample := &model.HealthSample{
		ID:          uuid.NewString(),
		ServiceName: in.ServiceName,
		Timestamp:   w.now().UTC(),
		MetricType:  in.MetricType,
		Value:       *in.Value,
		Metadata:    in.Metadata,
		Source:      model.SourceAPI,
		Environment: w.environment,
	}
	return w.WriteSample(ctx, sample)
}

// WriteSample runs an already validated sample through the write path. A sample without an
// ID or environment gets one assigned before the first attempt.
func (w *MetricWriter) WriteSample(ctx context.Context, sample *model.HealthSample) (*WriteResult, error) {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.Environment == "" {
		sample.Environment = w.environment
	}

	attempts, err := w.backoff.Do(ctx, func(ctx context.Context) error {
		return w.repo.Put(ctx, sample)
	})
	if err == nil {
		w.cache.Purge()
		w.logger.Store("metric written", "service", sample.ServiceName, "metric_type", sample.MetricType, "attempts", attempts)
		w.emit(ctx, sample, WriteAcceptedDirect)
		return &WriteResult{Outcome: WriteAcceptedDirect, Sample: sample, Attempts: attempts}, nil
	}

	if !isExhaustedOverload(err, attempts, w.backoff.MaxAttempts) {
		w.logger.Errorw("msg", "metric write failed", "service", sample.ServiceName, "attempts", attempts, "error", err)
		return nil, ErrDependencyFailure(err)
	}

	if qerr := w.queue.Enqueue(ctx, sample, queueReasonOverload); qerr != nil {
		w.logger.Errorw("msg", "metric write exhausted and fallback queue failed",
			"service", sample.ServiceName,
			"attempts", attempts,
			"error", err,
			"queue_error", qerr)
		return nil, ErrWriteExhausted(fmt.Errorf("%w; fallback: %w", err, qerr))
	}

	w.audit.LogQueueFallback(ctx, sample, queueReasonOverload)
	w.logger.Queue("metric queued after store overload", "service", sample.ServiceName, "sample_id", sample.ID, "attempts", attempts)
	w.emit(ctx, sample, WriteAcceptedQueued)
	return &WriteResult{Outcome: WriteAcceptedQueued, Sample: sample, Attempts: attempts}, nil
}

func (w *MetricWriter) emit(ctx context.Context, sample *model.HealthSample, outcome WriteOutcome) {
	err := w.sink.Emit(ctx, []model.Datum{
		{
			Name:       sample.MetricType,
			Value:      sample.Value,
			Unit:       model.UnitNone,
			Dimensions: map[string]string{model.DimServiceName: sample.ServiceName},
			Custom:     true,
		},
		{
			Name:       model.MetricWriteOutcome,
			Value:      1,
			Unit:       model.UnitCount,
			Dimensions: map[string]string{model.DimOutcome: string(outcome)},
		},
	})
	if err != nil {
		w.logger.Debugw("msg", "failed to emit write metrics", "error", err)
	}
}

// isExhaustedOverload reports whether every attempt failed with overload, as opposed to a
// non-overload error or a cancelled wait.
func isExhaustedOverload(err error, attempts, maxAttempts int) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return attempts >= maxAttempts && pkgerrors.IsOverloadError(err)
}
