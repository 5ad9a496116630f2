package server

import (
	"context"
	"fmt"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
	"HealthPulse/internal/service"
	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/robfig/cron/v3"
)

// Default schedules.
const (
	DefaultMonitorSchedule   = "@every 5m"
	DefaultReplaySchedule    = "@every 1m"
	DefaultReadinessSchedule = "@every 30s"
)

const (
	monitorJobTimeout   = 4 * time.Minute
	replayJobTimeout    = 50 * time.Second
	readinessJobTimeout = 20 * time.Second
)

var _ transport.Server = (*Scheduler)(nil)

// CycleRunner runs one monitor cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*model.MonitorReport, error)
}

// BatchReplayer drains part of the fallback queue.
type BatchReplayer interface {
	ReplayBatch(ctx context.Context) (int, error)
}

// ReadinessChecker re-evaluates readiness.
type ReadinessChecker interface {
	Check(ctx context.Context) (*service.HealthReply, error)
}

// Scheduler runs the background jobs as a kratos transport server. A job that is still
// running when its next tick arrives is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *pkglog.LogHelper
}

// NewScheduler registers the monitor, replay and readiness jobs.
func NewScheduler(m *conf.Monitor, d *conf.Data, monitor CycleRunner, replayer BatchReplayer, readiness ReadinessChecker, logger log.Logger) (*Scheduler, error) {
	helper := pkglog.NewLogHelper(logger)
	cl := cronLogger{helper: helper}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: helper,
	}

	monitorSpec := DefaultMonitorSchedule
	if m != nil && m.Schedule != "" {
		monitorSpec = m.Schedule
	}
	replaySpec := DefaultReplaySchedule
	if d != nil && d.Queue != nil && d.Queue.ReplaySchedule != "" {
		replaySpec = d.Queue.ReplaySchedule
	}

	jobs := []struct {
		name    string
		spec    string
		timeout time.Duration
		run     func(ctx context.Context) error
	}{
		{
			name:    "monitor",
			spec:    monitorSpec,
			timeout: monitorJobTimeout,
			run: func(ctx context.Context) error {
				_, err := monitor.RunCycle(ctx)
				return err
			},
		},
		{
			name:    "queue-replay",
			spec:    replaySpec,
			timeout: replayJobTimeout,
			run: func(ctx context.Context) error {
				_, err := replayer.ReplayBatch(ctx)
				return err
			},
		},
		{
			name:    "readiness",
			spec:    DefaultReadinessSchedule,
			timeout: readinessJobTimeout,
			run: func(ctx context.Context) error {
				_, err := readiness.Check(ctx)
				return err
			},
		},
	}

	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.timeout, j.run)); err != nil {
			return nil, fmt.Errorf("failed to schedule %s job %q: %w", j.name, j.spec, err)
		}
		helper.Scheduler("job scheduled", "job", j.name, "schedule", j.spec)
	}

	return s, nil
}

func (s *Scheduler) wrap(name string, timeout time.Duration, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Errorw("msg", "scheduled job failed", "job", name, "error", err, "type", "scheduler")
			return
		}
		s.logger.Scheduler("scheduled job completed", "job", name, "duration_ms", time.Since(start).Milliseconds())
	}
}

// Start starts the cron loop and returns.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	s.logger.Scheduler("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Scheduler("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own logging into the service logger.
type cronLogger struct {
	helper *pkglog.LogHelper
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.helper.Debugw(append([]interface{}{"msg", msg, "type", "scheduler"}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.helper.Errorw(append([]interface{}{"msg", msg, "error", err, "type", "scheduler"}, keysAndValues...)...)
}
