package biz

import (
	"context"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// SLO defaults.
const (
	DefaultTargetAvailability = 99.9
	DefaultSLOWindow          = 24 * time.Hour
)

// ComputeSnapshot derives availability and remaining error budget from HEALTH_CHECK samples.
// A sample with value > 0 is a success. Zero samples yield 0% availability, 0 remaining
// budget and InsufficientData.
func ComputeSnapshot(samples []*model.HealthSample, target float64, windowStart, windowEnd time.Time) *model.SLOSnapshot {
	s := &model.SLOSnapshot{
		TargetAvailability: target,
		WindowStart:        windowStart,
		WindowEnd:          windowEnd,
	}
	for _, sample := range samples {
		s.TotalChecks++
		if sample.Value > 0 {
			s.SuccessfulChecks++
		}
	}
	s.FailedChecks = s.TotalChecks - s.SuccessfulChecks

	if s.TotalChecks == 0 {
		s.InsufficientData = true
		return s
	}

	s.AvailabilityPercentage = float64(s.SuccessfulChecks) / float64(s.TotalChecks) * 100
	targetBudget := 100 - target
	used := 100 - s.AvailabilityPercentage
	if remaining := targetBudget - used; remaining > 0 {
		s.ErrorBudgetRemaining = remaining
	}
	return s
}

// SLOCalculator computes availability over a window of stored health checks.
type SLOCalculator struct {
	repo   SampleRepo
	target float64
	window time.Duration
	now    func() time.Time
	logger *pkglog.LogHelper
}

// NewSLOCalculator creates an SLOCalculator.
func NewSLOCalculator(repo SampleRepo, c *conf.Monitor, logger log.Logger) *SLOCalculator {
	calc := &SLOCalculator{
		repo:   repo,
		target: DefaultTargetAvailability,
		window: DefaultSLOWindow,
		now:    time.Now,
		logger: pkglog.NewLogHelper(logger),
	}
	if c != nil {
		if c.TargetAvailability > 0 {
			calc.target = c.TargetAvailability
		}
		if d := c.Window.AsDuration(); d > 0 {
			calc.window = d
		}
	}
	return calc
}

// Target is the availability objective in percent.
func (c *SLOCalculator) Target() float64 {
	return c.target
}

// Compute returns the snapshot for HEALTH_CHECK samples recorded in [windowStart, windowEnd].
func (c *SLOCalculator) Compute(ctx context.Context, windowStart, windowEnd time.Time) (*model.SLOSnapshot, error) {
	samples, err := c.repo.ListByType(ctx, model.MetricTypeHealthCheck, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	s := ComputeSnapshot(samples, c.target, windowStart, windowEnd)
	c.logger.SLO("SLO computed",
		"total_checks", s.TotalChecks,
		"successful_checks", s.SuccessfulChecks,
		"availability_percentage", s.AvailabilityPercentage,
		"error_budget_remaining", s.ErrorBudgetRemaining,
		"status", string(s.Status()))
	return s, nil
}

// ComputeTrailing computes the snapshot for the configured window ending now.
func (c *SLOCalculator) ComputeTrailing(ctx context.Context) (*model.SLOSnapshot, error) {
	end := c.now().UTC()
	return c.Compute(ctx, end.Add(-c.window), end)
}
