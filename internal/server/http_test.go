package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"HealthPulse/internal/biz"
	"HealthPulse/internal/conf"
	"HealthPulse/internal/data"
	"HealthPulse/internal/model"
	"HealthPulse/internal/service"
	pkgerrors "HealthPulse/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory sample store whose Put can be made to fail.
type memStore struct {
	mu      sync.Mutex
	samples []*model.HealthSample
	putErr  error
	panics  bool
}

func (s *memStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

func (s *memStore) Put(_ context.Context, sample *model.HealthSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("store exploded")
	}
	if s.putErr != nil {
		return s.putErr
	}
	copied := *sample
	s.samples = append(s.samples, &copied)
	return nil
}

func (s *memStore) Get(_ context.Context, serviceName string, _ time.Time, limit int) ([]*model.HealthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.HealthSample
	for i := len(s.samples) - 1; i >= 0 && len(out) < limit; i-- {
		if s.samples[i].ServiceName == serviceName {
			out = append(out, s.samples[i])
		}
	}
	return out, nil
}

func (s *memStore) ScanRecent(_ context.Context, _ time.Time, limit int) ([]*model.HealthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.HealthSample
	for i := len(s.samples) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.samples[i])
	}
	return out, nil
}

func (s *memStore) ListByType(_ context.Context, metricType string, _, _ time.Time) ([]*model.HealthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.HealthSample
	for _, sample := range s.samples {
		if sample.MetricType == metricType {
			out = append(out, sample)
		}
	}
	return out, nil
}

type nopAudit struct{}

func (nopAudit) LogBreakerTransition(context.Context, model.BreakerTransition) {}
func (nopAudit) LogAlert(context.Context, *model.ErrorBudgetEvent)             {}
func (nopAudit) LogQueueFallback(context.Context, *model.HealthSample, string) {}

type okProbe struct{ name string }

func (p okProbe) Name() string                       { return p.name }
func (p okProbe) Check(context.Context) (int, error) { return 0, nil }

type testEnv struct {
	srv     *http.Server
	store   *memStore
	queue   *data.FallbackQueue
	reports *data.ReportCache
	breaker *biz.CircuitBreaker
}

func testLogger() log.Logger {
	return log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelError))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := &memStore{}
	queue := data.NewFallbackQueue(nil, rdb, logger)
	reports := data.NewReportCache(data.NewCacheClient(rdb))
	sink := data.NewPrometheusSink(logger)

	backoff := biz.NewBackoff(nil)
	backoff.BaseDelay = 0
	backoff.MaxJitter = 0

	cb := biz.NewCircuitBreaker(biz.BreakerConfig{FailureThreshold: 5, OpenTimeout: time.Minute})
	env := &conf.Monitor{Environment: "test"}

	writer := biz.NewMetricWriter(store, queue, data.NewQueryCache(nil), backoff, sink, nopAudit{}, env, logger)
	reader := biz.NewMetricReader(store, data.NewQueryCache(nil), backoff, logger)
	checker := biz.NewHealthChecker(nil, logger)
	status := biz.NewStatusChecker(checker, biz.ReadinessProbes{okProbe{name: model.ProbeDatastore}}, cb, biz.AppInfo{Version: "test-version", Environment: "test"})

	srv := NewHTTPServer(
		&conf.Server{Http: &conf.Server_HTTP{CorsOrigins: []string{"*"}}},
		cb,
		sink,
		service.NewHealthService(status, service.NewGRPCHealth(), logger),
		service.NewMetricService(writer, reader, logger),
		service.NewLogService(biz.NewLogIngester(writer, sink, logger), logger),
		service.NewSLOService(reports, logger),
		logger,
	)

	return &testEnv{srv: srv, store: store, queue: queue, reports: reports, breaker: cb}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPostMetric_Created(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"latency","value":150.5}`)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Metric created successfully", body["message"])
	assert.Equal(t, "svc", body["serviceName"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	require.Len(t, e.store.samples, 1)
	assert.Equal(t, 150.5, e.store.samples[0].Value)
	assert.Equal(t, model.SourceAPI, e.store.samples[0].Source)

	rec = e.do("GET", "/metrics?service=svc", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Equal(t, 1.0, list["count"])
	metrics := list["metrics"].([]interface{})
	require.Len(t, metrics, 1)
	assert.Equal(t, 150.5, metrics[0].(map[string]interface{})["value"])
}

func TestPostMetric_MissingValue(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest("POST", "/metrics", strings.NewReader(`{"serviceName":"svc","metricType":"latency"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Missing required field: value", body["error"])
	assert.Equal(t, biz.ReasonValidationFailed, body["reason"])
	assert.Equal(t, "req-123", body["requestId"])
	assert.Empty(t, e.store.samples)
	assert.Equal(t, model.BreakerClosed, e.breaker.State())
}

func TestPostMetric_EmptyBody(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("POST", "/metrics", "")
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is required", decode(t, rec)["error"])
}

func TestPostMetric_QueuedOnOverload(t *testing.T) {
	e := newTestEnv(t)
	e.store.failWith(&pkgerrors.DatabaseError{Type: pkgerrors.ErrorTypeThrottled, OriginalErr: errors.New("lock wait timeout")})

	rec := e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"latency","value":1}`)
	require.Equal(t, nethttp.StatusAccepted, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Metric queued for processing", body["message"])
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "svc", body["serviceName"])

	n, err := e.queue.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, model.BreakerClosed, e.breaker.State())
}

func TestBreakerTripsAfterFiveFailures(t *testing.T) {
	e := newTestEnv(t)
	e.store.failWith(errors.New("connection refused"))

	for i := 0; i < 5; i++ {
		rec := e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"latency","value":1}`)
		require.Equal(t, nethttp.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Internal server error", body["error"])
		assert.NotContains(t, rec.Body.String(), "connection refused")
	}
	require.Equal(t, model.BreakerOpen, e.breaker.State())

	rec := e.do("GET", "/metrics", "")
	require.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "OPEN", body["circuitBreakerState"])
	assert.Equal(t, biz.ReasonCircuitOpen, body["reason"])
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = e.do("GET", "/health", "")
	require.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)
	health := decode(t, rec)
	assert.Equal(t, "degraded", health["status"])
	assert.Equal(t, "OPEN", health["circuitBreakerState"])

	req := httptest.NewRequest("OPTIONS", "/metrics", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	opts := httptest.NewRecorder()
	e.srv.ServeHTTP(opts, req)
	assert.Equal(t, nethttp.StatusOK, opts.Code)
	assert.NotEmpty(t, opts.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth_RecoversAfterOpenTimeout(t *testing.T) {
	e := newTestEnv(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.breaker.SetNowFunc(func() time.Time { return now })
	e.store.failWith(errors.New("connection refused"))

	for i := 0; i < 5; i++ {
		e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"latency","value":1}`)
	}
	require.Equal(t, model.BreakerOpen, e.breaker.State())

	rec := e.do("GET", "/health", "")
	require.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)

	e.store.failWith(nil)
	now = now.Add(10 * time.Minute)

	rec = e.do("GET", "/health", "")
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "HALF_OPEN", decode(t, rec)["circuitBreakerState"])

	rec = e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"latency","value":1}`)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.BreakerClosed, e.breaker.State())
}

func TestPostMetric_MalformedBodyWhileOpen(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 5; i++ {
		e.breaker.RecordFailure()
	}

	rec := e.do("POST", "/metrics", `{"serviceName":`)
	require.Equal(t, nethttp.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Equal(t, biz.ReasonCircuitOpen, decode(t, rec)["reason"])
}

func TestPostMetric_MalformedBody(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("POST", "/metrics", `{"serviceName":`)
	require.Equal(t, nethttp.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, model.BreakerClosed, e.breaker.State())
	assert.Equal(t, 0, e.breaker.Snapshot().ConsecutiveFailures)
}

func TestPostMetric_ReservedNameStaysCustom(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"CircuitBreakerState","value":2}`)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	rec = e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"ApiSuccess","value":1000}`)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())

	body := e.do("GET", MetricsPath, "").Body.String()
	assert.NotContains(t, body, "healthpulse_circuit_breaker_state 2")
	assert.NotContains(t, body, `healthpulse_api_success_total{method="",path=""}`)
	assert.Contains(t, body, `healthpulse_custom_metric{name="CircuitBreakerState",service="svc",unit="None"} 2`)
	assert.Contains(t, body, `healthpulse_custom_metric{name="ApiSuccess",service="svc",unit="None"} 1000`)
}

func TestPostLogs(t *testing.T) {
	e := newTestEnv(t)

	batch := "{\"service\":\"api-service\",\"metrics\":{\"latency\":5}}\nnot json\n\n{\"service\":\"worker\"}\n"
	rec := e.do("POST", "/logs?source=logs/app.log", batch)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Log processing completed successfully", body["message"])
	assert.Equal(t, 2.0, body["processed"])
	assert.Equal(t, 0.0, body["queued"])
	assert.Equal(t, 1.0, body["skipped"])

	require.Len(t, e.store.samples, 2)
	for _, s := range e.store.samples {
		assert.Equal(t, model.MetricTypeLogProcessed, s.MetricType)
		assert.Equal(t, model.SourceLogProcessor, s.Source)
	}
	assert.NotEqual(t, e.store.samples[0].ID, e.store.samples[1].ID)

	metrics := e.do("GET", MetricsPath, "").Body.String()
	assert.Contains(t, metrics, `healthpulse_logs_processed_total{service="api-service"} 1`)
}

func TestPostLogs_EmptyBody(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("POST", "/logs", "")
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is required", decode(t, rec)["error"])
}

func TestRecoveredPanicIsInternalError(t *testing.T) {
	e := newTestEnv(t)
	e.store.panics = true

	rec := e.do("POST", "/metrics", `{"serviceName":"svc","metricType":"latency","value":1}`)
	require.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
}

func TestGetMetrics_InvalidLimit(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("GET", "/metrics?limit=5000", "")
	require.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "Limit must be between 1 and 1000", decode(t, rec)["error"])
}

func TestHealth_Healthy(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("GET", "/health", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "CLOSED", body["circuitBreakerState"])
	assert.Equal(t, "test-version", body["version"])
	assert.Equal(t, map[string]interface{}{"datastore": "healthy"}, body["services"])
}

func TestGetSLO(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("GET", "/slo", "")
	require.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, biz.ReasonReportNotFound, decode(t, rec)["reason"])

	report := &model.MonitorReport{
		Snapshot:  model.SLOSnapshot{TargetAvailability: 99.9, TotalChecks: 10, SuccessfulChecks: 10, AvailabilityPercentage: 100, ErrorBudgetRemaining: 0.1},
		Status:    model.SLOStatusOK,
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, e.reports.SaveReport(context.Background(), report))

	rec = e.do("GET", "/slo", "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, 100.0, body["slo"].(map[string]interface{})["availabilityPercentage"])
}

func TestPreflight(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do("OPTIONS", "/anything", "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestPrometheusEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do("GET", "/metrics", "")

	rec := e.do("GET", MetricsPath, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthpulse_api_success_total")
	assert.Contains(t, rec.Body.String(), "healthpulse_api_latency_milliseconds")
}
