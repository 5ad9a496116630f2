// Package server builds the transports served by the kratos app.
package server

import (
	"HealthPulse/internal/biz"
	"HealthPulse/internal/service"

	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(
	NewHTTPServer,
	NewGRPCServer,
	NewScheduler,
	wire.Bind(new(CycleRunner), new(*biz.Monitor)),
	wire.Bind(new(BatchReplayer), new(*biz.QueueReplayer)),
	wire.Bind(new(ReadinessChecker), new(*service.HealthService)),
)
