package biz

import (
	"context"
	"os"
	"sync"
	"time"

	"HealthPulse/internal/model"

	"github.com/cenkalti/backoff/v3"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/mock"
)

func testLogger() log.Logger {
	return log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelWarn))
}

// MockSampleRepo is a mock implementation of SampleRepo for testing.
type MockSampleRepo struct {
	mock.Mock
}

func (m *MockSampleRepo) Put(ctx context.Context, sample *model.HealthSample) error {
	args := m.Called(ctx, sample)
	return args.Error(0)
}

func (m *MockSampleRepo) Get(ctx context.Context, serviceName string, since time.Time, limit int) ([]*model.HealthSample, error) {
	args := m.Called(ctx, serviceName, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.HealthSample), args.Error(1)
}

func (m *MockSampleRepo) ScanRecent(ctx context.Context, since time.Time, limit int) ([]*model.HealthSample, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.HealthSample), args.Error(1)
}

func (m *MockSampleRepo) ListByType(ctx context.Context, metricType string, since, until time.Time) ([]*model.HealthSample, error) {
	args := m.Called(ctx, metricType, since, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.HealthSample), args.Error(1)
}

// MockFallbackQueue is a mock implementation of FallbackQueue for testing.
type MockFallbackQueue struct {
	mock.Mock
}

func (m *MockFallbackQueue) Enqueue(ctx context.Context, sample *model.HealthSample, reason string) error {
	args := m.Called(ctx, sample, reason)
	return args.Error(0)
}

func (m *MockFallbackQueue) Claim(ctx context.Context) (*model.QueueLease, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueLease), args.Error(1)
}

func (m *MockFallbackQueue) Ack(ctx context.Context, lease *model.QueueLease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}

func (m *MockFallbackQueue) Nack(ctx context.Context, lease *model.QueueLease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}

func (m *MockFallbackQueue) Recover(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockFallbackQueue) Len(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditLogger is a mock implementation of AuditLogger for testing.
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogBreakerTransition(ctx context.Context, t model.BreakerTransition) {
	m.Called(ctx, t)
}

func (m *MockAuditLogger) LogAlert(ctx context.Context, event *model.ErrorBudgetEvent) {
	m.Called(ctx, event)
}

func (m *MockAuditLogger) LogQueueFallback(ctx context.Context, sample *model.HealthSample, reason string) {
	m.Called(ctx, sample, reason)
}

// MockNotifier is a mock implementation of Notifier for testing.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyErrorBudget(ctx context.Context, event *model.ErrorBudgetEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) NotifyCircuitClosed(ctx context.Context, event *model.CircuitClosedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockReportStore is a mock implementation of ReportStore for testing.
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report *model.MonitorReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportStore) LatestReport(ctx context.Context) (*model.MonitorReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MonitorReport), args.Error(1)
}

// fakeSink records every emitted batch.
type fakeSink struct {
	mu      sync.Mutex
	batches [][]model.Datum
	err     error
}

func (s *fakeSink) Emit(_ context.Context, data []model.Datum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]model.Datum(nil), data...))
	return s.err
}

func (s *fakeSink) all() []model.Datum {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Datum
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *fakeSink) named(name string) []model.Datum {
	var out []model.Datum
	for _, d := range s.all() {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// fakeCache is an in-memory QueryCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]*model.HealthSample
	purges  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]*model.HealthSample{}}
}

func (c *fakeCache) Get(key string) ([]*model.HealthSample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Add(key string, samples []*model.HealthSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = samples
}

func (c *fakeCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]*model.HealthSample{}
	c.purges++
}

// fakeProbe returns a fixed verdict.
type fakeProbe struct {
	name   string
	status int
	err    error
	delay  time.Duration
	panics bool
}

func (p *fakeProbe) Name() string { return p.name }

func (p *fakeProbe) Check(ctx context.Context) (int, error) {
	if p.panics {
		panic("boom")
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return p.status, p.err
}

// instantTimer fires as soon as it is started and records every requested wait.
type instantTimer struct {
	waits *[]time.Duration
	c     chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	*t.waits = append(*t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

// noSleepBackoff returns a Backoff that records waits instead of sleeping.
func noSleepBackoff(maxAttempts int) (*Backoff, *[]time.Duration) {
	waits := []time.Duration{}
	b := NewBackoff(nil)
	b.MaxAttempts = maxAttempts
	b.SetJitterFunc(func() float64 { return 0.5 })
	b.SetTimerFunc(func() backoff.Timer {
		return &instantTimer{waits: &waits}
	})
	return b, &waits
}
