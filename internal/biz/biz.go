// Package biz contains the resilience core: the circuit breaker, the resilient write path,
// retrying reads, the health checker, SLO calculation and error budget alerting.
package biz

import (
	"HealthPulse/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewObservedCircuitBreaker,
	NewBackoff,
	NewMetricWriter,
	NewMetricReader,
	NewLogIngester,
	NewHealthChecker,
	NewSLOCalculator,
	NewErrorBudgetAlerter,
	NewMonitor,
	NewQueueReplayer,
	NewStatusChecker,
	NewMonitorProbes,
	NewReadinessProbes,
	// Import data layer providers
	data.ProviderSet,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(SampleRepo), new(*data.SampleStore)),
	wire.Bind(new(FallbackQueue), new(*data.FallbackQueue)),
	wire.Bind(new(QueryCache), new(*data.QueryCache)),
	wire.Bind(new(ReportStore), new(*data.ReportCache)),
	wire.Bind(new(MetricsSink), new(*data.PrometheusSink)),
	wire.Bind(new(AuditLogger), new(*data.AuditLogger)),
	wire.Bind(new(Notifier), new(*data.Notifier)),
)

// AppInfo identifies the running process in readiness responses.
type AppInfo struct {
	Name        string
	Version     string
	Environment string
}
