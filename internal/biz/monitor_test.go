package biz

import (
	"context"
	"errors"
	"testing"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type monitorFixture struct {
	repo     *MockSampleRepo
	notifier *MockNotifier
	audit    *MockAuditLogger
	reports  *MockReportStore
	sink     *fakeSink
	monitor  *Monitor
}

func newMonitorFixture(probes ...Probe) *monitorFixture {
	f := &monitorFixture{
		repo:     new(MockSampleRepo),
		notifier: new(MockNotifier),
		audit:    new(MockAuditLogger),
		reports:  new(MockReportStore),
		sink:     &fakeSink{},
	}
	c := &conf.Monitor{Environment: "test"}
	backoff, _ := noSleepBackoff(3)
	f.monitor = NewMonitor(
		NewHealthChecker(c, testLogger()),
		MonitorProbes(probes),
		f.repo,
		backoff,
		NewSLOCalculator(f.repo, c, testLogger()),
		NewErrorBudgetAlerter(nil),
		f.sink,
		f.notifier,
		f.audit,
		f.reports,
		c,
		testLogger(),
	)
	return f
}

func sampleOfType(metricType string) interface{} {
	return mock.MatchedBy(func(s *model.HealthSample) bool { return s.MetricType == metricType })
}

func TestMonitor_RunCycle_Alerts(t *testing.T) {
	f := newMonitorFixture(
		&fakeProbe{name: model.ProbeAPIGateway, status: 200},
		&fakeProbe{name: model.ProbeDatastore, err: errors.New("connection refused")},
	)

	var checks []*model.HealthSample
	f.repo.On("Put", mock.Anything, sampleOfType(model.MetricTypeHealthCheck)).
		Run(func(args mock.Arguments) { checks = append(checks, args.Get(1).(*model.HealthSample)) }).
		Return(nil).Twice()
	f.repo.On("Put", mock.Anything, sampleOfType(model.MetricTypeSLOAvailability)).Return(nil).Once()
	f.repo.On("ListByType", mock.Anything, model.MetricTypeHealthCheck, mock.Anything, mock.Anything).
		Return(healthChecks(99, 1), nil).Once()
	f.audit.On("LogAlert", mock.Anything, mock.Anything).Return().Once()
	f.notifier.On("NotifyErrorBudget", mock.Anything, mock.MatchedBy(func(e *model.ErrorBudgetEvent) bool {
		return e.Alert.Severity == model.SeverityHigh && e.Environment == "test"
	})).Return(errors.New("webhook down")).Once()
	f.reports.On("SaveReport", mock.Anything, mock.AnythingOfType("*model.MonitorReport")).Return(nil).Once()

	report, err := f.monitor.RunCycle(context.Background())
	require.NoError(t, err)

	require.Len(t, checks, 2)
	assert.Equal(t, model.ProbeAPIGateway, checks[0].ServiceName)
	assert.Equal(t, 1.0, checks[0].Value)
	assert.Equal(t, model.SourceHealthMonitor, checks[0].Source)
	assert.Equal(t, true, checks[0].Metadata["healthy"])
	assert.Equal(t, 0.0, checks[1].Value)
	assert.Equal(t, "connection refused", checks[1].Metadata["error"])

	assert.Equal(t, model.SLOStatusOK, report.Status)
	assert.InDelta(t, 99.0, report.Snapshot.AvailabilityPercentage, 1e-9)
	require.NotNil(t, report.Alert)
	assert.Equal(t, model.SeverityHigh, report.Alert.Severity)
	assert.Len(t, report.Probes, 2)

	assert.Len(t, f.sink.named(model.MetricServiceHealth), 2)
	assert.Len(t, f.sink.named(model.MetricResponseTime), 2)
	assert.Len(t, f.sink.named(model.MetricAvailabilityPercentage), 1)
	assert.Len(t, f.sink.named(model.MetricErrorBudgetRemaining), 1)

	f.repo.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.reports.AssertExpectations(t)
}

func TestMonitor_RunCycle_NoData(t *testing.T) {
	f := newMonitorFixture()

	f.repo.On("ListByType", mock.Anything, model.MetricTypeHealthCheck, mock.Anything, mock.Anything).Return(nil, nil).Once()
	f.repo.On("Put", mock.Anything, sampleOfType(model.MetricTypeSLOAvailability)).Return(nil).Once()
	f.reports.On("SaveReport", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	report, err := f.monitor.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SLOStatusNoData, report.Status)
	assert.True(t, report.Snapshot.InsufficientData)
	assert.Nil(t, report.Alert)

	f.notifier.AssertNotCalled(t, "NotifyErrorBudget", mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "LogAlert", mock.Anything, mock.Anything)
}

func TestMonitor_RunCycle_StoreFailure(t *testing.T) {
	f := newMonitorFixture(&fakeProbe{name: model.ProbeAPIGateway, status: 200})

	f.repo.On("Put", mock.Anything, sampleOfType(model.MetricTypeHealthCheck)).Return(errors.New("store down")).Once()
	f.repo.On("Put", mock.Anything, mock.MatchedBy(func(s *model.HealthSample) bool {
		return s.MetricType == model.MetricTypeError &&
			s.ServiceName == model.ServiceHealthMonitor &&
			s.Metadata["stage"] == "record_health_check"
	})).Return(nil).Once()

	report, err := f.monitor.RunCycle(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.EqualError(t, err, "monitor cycle record_health_check: store down")

	f.repo.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "ListByType", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.reports.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything)
}

func TestEmitBatched(t *testing.T) {
	sink := &fakeSink{}
	data := make([]model.Datum, 45)
	for i := range data {
		data[i] = model.Datum{Name: "d", Value: float64(i)}
	}

	require.NoError(t, emitBatched(context.Background(), sink, data))
	require.Len(t, sink.batches, 3)
	assert.Len(t, sink.batches[0], 20)
	assert.Len(t, sink.batches[1], 20)
	assert.Len(t, sink.batches[2], 5)
	assert.Len(t, sink.all(), 45)
}
