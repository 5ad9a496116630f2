package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "healthpulse"

// ErrBatchTooLarge is returned when more than model.MaxDatumBatch points are emitted at once.
var ErrBatchTooLarge = fmt.Errorf("sink: batch exceeds %d data points", model.MaxDatumBatch)

// PrometheusSink is the metrics sink. Each datum name maps to a fixed metric family;
// unknown names land in the custom gauge.
type PrometheusSink struct {
	registry *prometheus.Registry
	logger   *log.Helper

	serviceHealth *prometheus.GaugeVec
	responseTime  *prometheus.GaugeVec
	availability  *prometheus.GaugeVec
	budget        *prometheus.GaugeVec
	apiSuccess    *prometheus.CounterVec
	apiError      *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	breakerState  prometheus.Gauge
	writeOutcome  *prometheus.CounterVec
	logsProcessed *prometheus.CounterVec
	customGauge   *prometheus.GaugeVec
	emitFailures  prometheus.Counter
}

// NewPrometheusSink creates a sink with its own registry.
func NewPrometheusSink(logger log.Logger) *PrometheusSink {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &PrometheusSink{
		registry: reg,
		logger:   log.NewHelper(logger),
		serviceHealth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "service_health",
			Help: "Latest probe verdict per service: 1 healthy, 0 unhealthy",
		}, []string{"service", "environment"}),
		responseTime: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "response_time_milliseconds",
			Help: "Latest probe latency per service",
		}, []string{"service", "environment"}),
		availability: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "availability_percentage",
			Help: "Availability over the SLO window",
		}, []string{"environment"}),
		budget: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "error_budget_remaining",
			Help: "Remaining error budget in percentage points",
		}, []string{"environment"}),
		apiSuccess: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "api_success_total",
			Help: "Requests answered below 400",
		}, []string{"method", "path"}),
		apiError: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "api_error_total",
			Help: "Requests answered with 400 or above",
		}, []string{"method", "path"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Name: "api_latency_milliseconds",
			Help:    "Request latency",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"method", "path"}),
		breakerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		}),
		writeOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "write_outcome_total",
			Help: "Write path outcomes",
		}, []string{"outcome"}),
		logsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "logs_processed_total",
			Help: "Log lines ingested per service",
		}, []string{"service"}),
		customGauge: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "custom_metric",
			Help: "Last value of ingested metrics by type",
		}, []string{"name", "service", "unit"}),
		emitFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "sink_rejected_total",
			Help: "Data points rejected by the sink",
		}),
	}
}

// Emit records up to model.MaxDatumBatch data points. Invalid points are skipped and
// reported in the returned error; valid points in the same batch are still recorded.
func (s *PrometheusSink) Emit(_ context.Context, data []model.Datum) error {
	if len(data) > model.MaxDatumBatch {
		return ErrBatchTooLarge
	}

	var errs []error
	for _, d := range data {
		if err := s.record(d); err != nil {
			s.emitFailures.Inc()
			s.logger.Debugw("msg", "rejected data point", "name", d.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *PrometheusSink) record(d model.Datum) error {
	dim := func(key string) string { return d.Dimensions[key] }

	if d.Custom {
		if d.Name == "" {
			return errors.New("sink: datum name is empty")
		}
		s.customGauge.WithLabelValues(d.Name, dim(model.DimServiceName), string(d.Unit)).Set(d.Value)
		return nil
	}

	switch d.Name {
	case model.MetricServiceHealth:
		s.serviceHealth.WithLabelValues(dim(model.DimServiceName), dim(model.DimEnvironment)).Set(d.Value)
	case model.MetricResponseTime:
		s.responseTime.WithLabelValues(dim(model.DimServiceName), dim(model.DimEnvironment)).Set(d.Value)
	case model.MetricAvailabilityPercentage:
		s.availability.WithLabelValues(dim(model.DimEnvironment)).Set(d.Value)
	case model.MetricErrorBudgetRemaining:
		s.budget.WithLabelValues(dim(model.DimEnvironment)).Set(d.Value)
	case model.MetricAPILatency:
		s.apiLatency.WithLabelValues(dim(model.DimMethod), dim(model.DimPath)).Observe(d.Value)
	case model.MetricCircuitBreakerState:
		s.breakerState.Set(d.Value)
	case model.MetricAPISuccess, model.MetricAPIError, model.MetricWriteOutcome, model.MetricLogsProcessed:
		if d.Value < 0 {
			return fmt.Errorf("sink: counter %s cannot decrease", d.Name)
		}
		switch d.Name {
		case model.MetricAPISuccess:
			s.apiSuccess.WithLabelValues(dim(model.DimMethod), dim(model.DimPath)).Add(d.Value)
		case model.MetricAPIError:
			s.apiError.WithLabelValues(dim(model.DimMethod), dim(model.DimPath)).Add(d.Value)
		case model.MetricLogsProcessed:
			s.logsProcessed.WithLabelValues(dim(model.DimServiceName)).Add(d.Value)
		default:
			s.writeOutcome.WithLabelValues(dim(model.DimOutcome)).Add(d.Value)
		}
	default:
		if d.Name == "" {
			return errors.New("sink: datum name is empty")
		}
		s.customGauge.WithLabelValues(d.Name, dim(model.DimServiceName), string(d.Unit)).Set(d.Value)
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry exposes the underlying registry.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}
