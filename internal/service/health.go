package service

import (
	"context"
	"net/http"

	"HealthPulse/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthService is the service name reported through grpc.health.v1.Health.
const GRPCHealthService = "healthpulse"

// NewGRPCHealth creates the gRPC health server. The service starts SERVING and follows
// every readiness evaluation afterwards.
func NewGRPCHealth() *health.Server {
	h := health.NewServer()
	h.SetServingStatus(GRPCHealthService, healthpb.HealthCheckResponse_SERVING)
	return h
}

// HealthReply is the GET /health body.
type HealthReply struct {
	*biz.Readiness
}

// StatusCode is 503 while degraded.
func (r *HealthReply) StatusCode() int {
	if r.Healthy() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// HealthService answers readiness checks.
type HealthService struct {
	checker *biz.StatusChecker
	grpc    *health.Server
	logger  *log.Helper
}

// NewHealthService creates a HealthService.
func NewHealthService(checker *biz.StatusChecker, grpc *health.Server, logger log.Logger) *HealthService {
	return &HealthService{
		checker: checker,
		grpc:    grpc,
		logger:  log.NewHelper(logger),
	}
}

// Check evaluates readiness and publishes it to the gRPC health server.
func (s *HealthService) Check(ctx context.Context) (*HealthReply, error) {
	r := s.checker.Check(ctx)

	status := healthpb.HealthCheckResponse_SERVING
	if !r.Healthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warnw("msg", "readiness degraded",
			"services", r.Services,
			"circuit_breaker_state", string(r.CircuitBreakerState))
	}
	s.grpc.SetServingStatus(GRPCHealthService, status)

	return &HealthReply{Readiness: r}, nil
}
