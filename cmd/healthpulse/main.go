// Package main is the entry point of the HealthPulse service.
// It serves the telemetry API over HTTP, the health protocol over gRPC, and runs the
// monitor and queue replay jobs.
package main

import (
	"flag"
	"os"

	"HealthPulse/internal/biz"
	"HealthPulse/internal/conf"
	"HealthPulse/internal/server"
	zapLogger "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "healthpulse"
	// Version is the version of the compiled software.
	Version = "dev"
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, gs *grpc.Server, hs *http.Server, sched *server.Scheduler, info biz.AppInfo) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(info.Name),
		kratos.Version(info.Version),
		kratos.Metadata(map[string]string{"environment": info.Environment}),
		kratos.Logger(logger),
		kratos.Server(
			gs,
			hs,
			sched,
		),
	)
}

func main() {
	flag.Parse()

	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Zap is not initialized yet
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	logger := zapLogger.NewKratosAdapter(zapLog)
	logger = log.With(logger,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	info := biz.AppInfo{
		Name:        Name,
		Version:     Version,
		Environment: bc.Monitor.Environment,
	}

	zapLogger.NewLogHelper(logger).Startup("HealthPulse service starting",
		"environment", info.Environment,
		"http.addr", bc.Server.Http.Addr,
		"grpc.addr", bc.Server.Grpc.Addr,
		"breaker.failure_threshold", bc.Resilience.Breaker.FailureThreshold,
		"breaker.open_timeout", bc.Resilience.Breaker.OpenTimeout.AsDuration().String(),
		"monitor.schedule", bc.Monitor.Schedule,
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Resilience, bc.Monitor, bc.Alert, info, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
