package biz

import (
	"context"
	"time"

	"HealthPulse/internal/model"
)

// Readiness statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Readiness is the GET /health verdict.
type Readiness struct {
	Status              string                       `json:"status"`
	Services            map[string]model.ProbeStatus `json:"services"`
	CircuitBreakerState model.BreakerState           `json:"circuitBreakerState"`
	Timestamp           time.Time                    `json:"timestamp"`
	Environment         string                       `json:"environment"`
	Version             string                       `json:"version"`
}

// Healthy reports whether the process should receive traffic.
func (r *Readiness) Healthy() bool {
	return r.Status == StatusHealthy
}

// StatusChecker evaluates readiness from the readiness probes and the breaker.
// A dependency that is not configured is reported unknown and does not degrade readiness.
type StatusChecker struct {
	checker *HealthChecker
	probes  ReadinessProbes
	breaker *CircuitBreaker
	info    AppInfo
	now     func() time.Time
}

// NewStatusChecker creates a StatusChecker.
func NewStatusChecker(checker *HealthChecker, probes ReadinessProbes, breaker *CircuitBreaker, info AppInfo) *StatusChecker {
	return &StatusChecker{
		checker: checker,
		probes:  probes,
		breaker: breaker,
		info:    info,
		now:     time.Now,
	}
}

// Check probes the dependencies and returns the verdict.
func (s *StatusChecker) Check(ctx context.Context) *Readiness {
	results := s.checker.Run(ctx, s.probes)

	r := &Readiness{
		Status:              StatusHealthy,
		Services:            make(map[string]model.ProbeStatus, len(results)),
		CircuitBreakerState: s.breaker.EffectiveState(),
		Timestamp:           s.now().UTC(),
		Environment:         s.info.Environment,
		Version:             s.info.Version,
	}
	for _, res := range results {
		status := res.Status()
		r.Services[res.Service] = status
		if status == model.ProbeUnhealthy {
			r.Status = StatusDegraded
		}
	}
	if r.CircuitBreakerState == model.BreakerOpen {
		r.Status = StatusDegraded
	}
	return r
}
