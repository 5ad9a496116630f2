package server

import (
	"context"

	"HealthPulse/internal/biz"
	"HealthPulse/internal/conf"
	"HealthPulse/internal/data"
	"HealthPulse/internal/server/middleware"
	"HealthPulse/internal/service"
	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// MetricsPath exposes the Prometheus registry. It bypasses the middleware chain.
const MetricsPath = "/internal/metrics"

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Server,
	cb *biz.CircuitBreaker,
	sink *data.PrometheusSink,
	health *service.HealthService,
	metric *service.MetricService,
	logs *service.LogService,
	slo *service.SLOService,
	logger log.Logger,
) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var origins []string
	if c != nil && c.Http != nil {
		origins = c.Http.CorsOrigins
	}

	var opts = []http.ServerOption{
		http.Filter(
			middleware.RequestID(),
			middleware.CORS(origins),
			middleware.Preflight(),
		),
		http.Middleware(
			middleware.Logging(logHelper),
			middleware.Metrics(sink),
			selector.Server(middleware.Breaker(cb)).Match(gated).Build(),
			recovery.Recovery(),
		),
		http.ErrorEncoder(middleware.ErrorEncoder),
	}
	if c != nil && c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, http.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != nil {
			opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)

	srv.Handle(MetricsPath, sink.Handler())
	service.RegisterHTTPServer(srv, health, metric, logs, slo)

	return srv
}

// gated selects the routes behind the circuit breaker. Readiness stays reachable so it can
// report the open breaker itself.
func gated(_ context.Context, operation string) bool {
	return operation != service.OperationHealth
}
