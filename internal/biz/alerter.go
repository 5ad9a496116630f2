package biz

import (
	"fmt"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
)

// Alert thresholds on remaining error budget, in percentage points of the 0.1% budget.
const (
	DefaultHighThreshold   = 0.05
	DefaultMediumThreshold = 0.075
)

// ErrorBudgetAlerter classifies a snapshot into an alert severity. It has no side effects.
type ErrorBudgetAlerter struct {
	high   float64
	medium float64
}

// NewErrorBudgetAlerter creates an ErrorBudgetAlerter.
func NewErrorBudgetAlerter(c *conf.Alert) *ErrorBudgetAlerter {
	a := &ErrorBudgetAlerter{high: DefaultHighThreshold, medium: DefaultMediumThreshold}
	if c != nil && c.HighThreshold > 0 && c.MediumThreshold > c.HighThreshold {
		a.high, a.medium = c.HighThreshold, c.MediumThreshold
	}
	return a
}

// Evaluate returns nil when no alert is due. Snapshots without data never alert.
func (a *ErrorBudgetAlerter) Evaluate(s *model.SLOSnapshot) *model.Alert {
	if s == nil || s.InsufficientData {
		return nil
	}

	remaining := s.ErrorBudgetRemaining
	switch {
	case remaining < a.high:
		return &model.Alert{
			Severity:             model.SeverityHigh,
			Message:              fmt.Sprintf("Error budget critically low: %.4f%% remaining (availability %.3f%%)", remaining, s.AvailabilityPercentage),
			ErrorBudgetRemaining: remaining,
		}
	case remaining < a.medium:
		return &model.Alert{
			Severity:             model.SeverityMedium,
			Message:              fmt.Sprintf("Error budget running low: %.4f%% remaining (availability %.3f%%)", remaining, s.AvailabilityPercentage),
			ErrorBudgetRemaining: remaining,
		}
	default:
		return nil
	}
}
