package biz

import (
	"context"
	"fmt"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
	pkglog "HealthPulse/pkg/log"
	"HealthPulse/pkg/metadata"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Monitor runs the scheduled cycle: probe dependencies, record the checks, compute the SLO,
// publish gauges, evaluate and dispatch alerts, and cache the report.
type Monitor struct {
	checker     *HealthChecker
	probes      MonitorProbes
	repo        SampleRepo
	backoff     *Backoff
	slo         *SLOCalculator
	alerter     *ErrorBudgetAlerter
	sink        MetricsSink
	notifier    Notifier
	audit       AuditLogger
	reports     ReportStore
	environment string
	now         func() time.Time
	logger      *pkglog.LogHelper
}

// NewMonitor creates a Monitor.
func NewMonitor(
	checker *HealthChecker,
	probes MonitorProbes,
	repo SampleRepo,
	backoff *Backoff,
	slo *SLOCalculator,
	alerter *ErrorBudgetAlerter,
	sink MetricsSink,
	notifier Notifier,
	audit AuditLogger,
	reports ReportStore,
	c *conf.Monitor,
	logger log.Logger,
) *Monitor {
	env := ""
	if c != nil {
		env = c.Environment
	}
	return &Monitor{
		checker:     checker,
		probes:      probes,
		repo:        repo,
		backoff:     backoff,
		slo:         slo,
		alerter:     alerter,
		sink:        sink,
		notifier:    notifier,
		audit:       audit,
		reports:     reports,
		environment: env,
		now:         time.Now,
		logger:      pkglog.NewLogHelper(logger),
	}
}

// RunCycle executes one monitor cycle. A store failure aborts the cycle after a best
// effort ERROR sample; sink, notifier and cache failures are logged only.
func (m *Monitor) RunCycle(ctx context.Context) (*model.MonitorReport, error) {
	results := m.checker.Run(ctx, m.probes)

	for _, r := range results {
		sample := m.newSample(r.Service, model.MetricTypeHealthCheck, r.Value(), metadata.ToMap(metadata.Probe{
			Healthy:        r.Healthy,
			ResponseTimeMs: r.ResponseTimeMs,
			StatusCode:     r.StatusCode,
			Error:          r.Error,
			Environment:    m.environment,
		}))
		if err := m.put(ctx, sample); err != nil {
			return nil, m.fail(ctx, "record_health_check", err)
		}
	}

	snapshot, err := m.slo.ComputeTrailing(ctx)
	if err != nil {
		return nil, m.fail(ctx, "compute_slo", err)
	}

	sloSample := m.newSample(model.ServiceSystem, model.MetricTypeSLOAvailability, snapshot.AvailabilityPercentage, metadata.ToMap(metadata.SLO{
		TargetAvailability:   snapshot.TargetAvailability,
		TotalChecks:          snapshot.TotalChecks,
		SuccessfulChecks:     snapshot.SuccessfulChecks,
		FailedChecks:         snapshot.FailedChecks,
		ErrorBudgetRemaining: snapshot.ErrorBudgetRemaining,
		Status:               string(snapshot.Status()),
	}))
	if err := m.put(ctx, sloSample); err != nil {
		return nil, m.fail(ctx, "record_slo", err)
	}

	if err := emitBatched(ctx, m.sink, m.gauges(results, snapshot)); err != nil {
		m.logger.Warnw("msg", "failed to publish monitor gauges", "error", err)
	}

	report := &model.MonitorReport{
		Snapshot:  *snapshot,
		Status:    snapshot.Status(),
		Probes:    results,
		Timestamp: m.now().UTC(),
	}

	if alert := m.alerter.Evaluate(snapshot); alert != nil {
		report.Alert = alert
		m.dispatch(ctx, alert, snapshot)
	}

	if err := m.reports.SaveReport(ctx, report); err != nil {
		m.logger.Warnw("msg", "failed to cache monitor report", "error", err)
	}

	m.logger.SLO("monitor cycle completed",
		"availability_percentage", snapshot.AvailabilityPercentage,
		"error_budget_remaining", snapshot.ErrorBudgetRemaining,
		"status", string(report.Status),
		"alert", report.Alert != nil)
	return report, nil
}

func (m *Monitor) dispatch(ctx context.Context, alert *model.Alert, snapshot *model.SLOSnapshot) {
	event := &model.ErrorBudgetEvent{Alert: *alert, Snapshot: *snapshot, Environment: m.environment}

	m.logger.Alert(alert.Message,
		"severity", string(alert.Severity),
		"error_budget_remaining", alert.ErrorBudgetRemaining)
	m.audit.LogAlert(ctx, event)

	if err := m.notifier.NotifyErrorBudget(ctx, event); err != nil {
		m.logger.Warnw("msg", "failed to deliver error budget alert", "severity", string(alert.Severity), "error", err)
	}
}

func (m *Monitor) gauges(results []model.ProbeResult, s *model.SLOSnapshot) []model.Datum {
	env := map[string]string{model.DimEnvironment: m.environment}
	data := make([]model.Datum, 0, 2*len(results)+2)
	for _, r := range results {
		dims := map[string]string{model.DimServiceName: r.Service, model.DimEnvironment: m.environment}
		data = append(data,
			model.Datum{Name: model.MetricServiceHealth, Value: r.Value(), Unit: model.UnitNone, Dimensions: dims},
			model.Datum{Name: model.MetricResponseTime, Value: float64(r.ResponseTimeMs), Unit: model.UnitMilliseconds, Dimensions: dims},
		)
	}
	return append(data,
		model.Datum{Name: model.MetricAvailabilityPercentage, Value: s.AvailabilityPercentage, Unit: model.UnitPercent, Dimensions: env},
		model.Datum{Name: model.MetricErrorBudgetRemaining, Value: s.ErrorBudgetRemaining, Unit: model.UnitPercent, Dimensions: env},
	)
}

func (m *Monitor) put(ctx context.Context, sample *model.HealthSample) error {
	_, err := m.backoff.Do(ctx, func(ctx context.Context) error {
		return m.repo.Put(ctx, sample)
	})
	return err
}

// fail records an ERROR sample for the monitor itself and returns the wrapped cause.
func (m *Monitor) fail(ctx context.Context, stage string, cause error) error {
	m.logger.Errorw("msg", "monitor cycle failed", "stage", stage, "error", cause)

	sample := m.newSample(model.ServiceHealthMonitor, model.MetricTypeError, 1, metadata.ToMap(metadata.Failure{
		Error: cause.Error(),
		Stage: stage,
	}))
	if err := m.repo.Put(ctx, sample); err != nil {
		m.logger.Warnw("msg", "failed to record monitor error sample", "error", err)
	}
	return fmt.Errorf("monitor cycle %s: %w", stage, cause)
}

func (m *Monitor) newSample(service, metricType string, value float64, meta map[string]interface{}) *model.HealthSample {
	return &model.HealthSample{
		ID:          uuid.NewString(),
		ServiceName: service,
		Timestamp:   m.now().UTC(),
		MetricType:  metricType,
		Value:       value,
		Metadata:    meta,
		Source:      model.SourceHealthMonitor,
		Environment: m.environment,
	}
}
