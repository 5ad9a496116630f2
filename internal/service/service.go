// Package service adapts the biz layer to the HTTP and gRPC transports.
package service

import (
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewGRPCHealth, NewHealthService, NewMetricService, NewLogService, NewSLOService)

// Operations identify routes to middleware selectors.
const (
	OperationHealth      = "/healthpulse.v1.HealthPulse/Health"
	OperationListMetrics = "/healthpulse.v1.HealthPulse/ListMetrics"
	OperationWriteMetric = "/healthpulse.v1.HealthPulse/WriteMetric"
	OperationGetSLO      = "/healthpulse.v1.HealthPulse/GetSLO"
	OperationIngestLogs  = "/healthpulse.v1.HealthPulse/IngestLogs"
)

// StatusCoder is implemented by replies that are not answered with 200.
type StatusCoder interface {
	StatusCode() int
}
