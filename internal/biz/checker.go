package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/data"
	"HealthPulse/internal/model"
	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// DefaultProbeTimeout bounds each probe.
const DefaultProbeTimeout = 10 * time.Second

// MonitorProbes are checked by the scheduled monitor cycle.
type MonitorProbes []Probe

// ReadinessProbes are checked by GET /health.
type ReadinessProbes []Probe

// NewMonitorProbes returns the api-gateway and datastore probes.
func NewMonitorProbes(api *data.APIProbe, store *data.DatastoreProbe) MonitorProbes {
	return MonitorProbes{api, store}
}

// NewReadinessProbes returns the datastore and queue probes.
func NewReadinessProbes(store *data.DatastoreProbe, queue *data.QueueProbe) ReadinessProbes {
	return ReadinessProbes{store, queue}
}

// HealthChecker runs probes concurrently, each under its own timeout. A failing, slow or
// panicking probe becomes an unhealthy result; Run itself never fails.
type HealthChecker struct {
	timeout time.Duration
	now     func() time.Time
	logger  *pkglog.LogHelper
}

// NewHealthChecker creates a HealthChecker.
func NewHealthChecker(c *conf.Monitor, logger log.Logger) *HealthChecker {
	timeout := DefaultProbeTimeout
	if c != nil {
		if d := c.ProbeTimeout.AsDuration(); d > 0 {
			timeout = d
		}
	}
	return &HealthChecker{
		timeout: timeout,
		now:     time.Now,
		logger:  pkglog.NewLogHelper(logger),
	}
}

// Run probes every dependency and returns results in probe order.
func (h *HealthChecker) Run(ctx context.Context, probes []Probe) []model.ProbeResult {
	results := make([]model.ProbeResult, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			results[i] = h.check(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (h *HealthChecker) check(ctx context.Context, p Probe) (result model.ProbeResult) {
	start := h.now()
	result = model.ProbeResult{Service: p.Name(), Configured: true}

	defer func() {
		if r := recover(); r != nil {
			result.Healthy = false
			result.Error = fmt.Sprintf("probe panicked: %v", r)
		}
		result.ResponseTimeMs = h.now().Sub(start).Milliseconds()
		result.Timestamp = h.now().UTC()
		h.logger.Probe("dependency probed",
			"service", result.Service,
			"healthy", result.Healthy,
			"response_time_ms", result.ResponseTimeMs,
			"status_code", result.StatusCode,
			"error", result.Error)
	}()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status, err := p.Check(ctx)
	result.StatusCode = status
	if err != nil {
		result.Error = err.Error()
		result.Configured = !errors.Is(err, model.ErrNotConfigured)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.Error = fmt.Sprintf("timeout after %s", h.timeout)
		}
		return result
	}
	result.Healthy = true
	return result
}
