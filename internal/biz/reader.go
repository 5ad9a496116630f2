package biz

import (
	"context"
	"strconv"
	"time"

	"HealthPulse/internal/data"
	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// Query limits.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
	DefaultTimeRange  = "24h"
)

var timeRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// MetricQuery selects metrics for GET /metrics.
type MetricQuery struct {
	ServiceName string
	Limit       int
	TimeRange   string
}

// MetricPage is a query result.
type MetricPage struct {
	Metrics      []*model.HealthSample
	Count        int
	ScannedCount int
}

// ParseMetricQuery validates raw query parameters. An unknown time range falls back to 24h.
func ParseMetricQuery(service, limit, timeRange string) (*MetricQuery, error) {
	q := &MetricQuery{ServiceName: service, Limit: DefaultQueryLimit, TimeRange: timeRange}

	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxQueryLimit {
			return nil, ErrValidation("Limit must be between 1 and 1000")
		}
		q.Limit = n
	}
	if _, ok := timeRanges[q.TimeRange]; !ok {
		q.TimeRange = DefaultTimeRange
	}
	return q, nil
}

// MetricReader serves metric queries with overload retries and a short lived cache.
// Reads have no fallback: exhausted retries surface as a dependency failure.
type MetricReader struct {
	repo    SampleRepo
	cache   QueryCache
	backoff *Backoff
	now     func() time.Time
	logger  *log.Helper
}

// NewMetricReader creates a MetricReader.
func NewMetricReader(repo SampleRepo, cache QueryCache, backoff *Backoff, logger log.Logger) *MetricReader {
	return &MetricReader{
		repo:    repo,
		cache:   cache,
		backoff: backoff,
		now:     time.Now,
		logger:  log.NewHelper(logger),
	}
}

// Query returns metrics latest first. With a service name only that service is read.
func (r *MetricReader) Query(ctx context.Context, q *MetricQuery) (*MetricPage, error) {
	key := data.QueryKey(q.ServiceName, q.TimeRange, q.Limit)
	if cached, ok := r.cache.Get(key); ok {
		return &MetricPage{Metrics: cached, Count: len(cached), ScannedCount: len(cached)}, nil
	}

	since := r.now().Add(-timeRanges[q.TimeRange])
	var samples []*model.HealthSample
	attempts, err := r.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		if q.ServiceName != "" {
			samples, err = r.repo.Get(ctx, q.ServiceName, since, q.Limit)
		} else {
			samples, err = r.repo.ScanRecent(ctx, since, q.Limit)
		}
		return err
	})
	if err != nil {
		r.logger.Errorw("msg", "metric query failed", "service", q.ServiceName, "attempts", attempts, "error", err)
		return nil, ErrDependencyFailure(err)
	}

	r.cache.Add(key, samples)
	return &MetricPage{Metrics: samples, Count: len(samples), ScannedCount: len(samples)}, nil
}
