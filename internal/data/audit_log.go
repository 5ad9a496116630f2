package data

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"HealthPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// AuditLog is the GORM model for healthpulse_audit_logs table
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	EventType string    `gorm:"column:event_type;type:varchar(50);not null;index"`
	Details   string    `gorm:"column:details;type:json"` // JSON string
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "healthpulse_audit_logs"
}

// AuditLogger writes breaker, alert and fallback events to the audit table from a background goroutine.
type AuditLogger struct {
	db      *gorm.DB
	logChan chan *AuditLog
	logger  *log.Helper

	closeOnce sync.Once
	done      chan struct{}
}

// NewAuditLogger creates a new audit logger with async channel.
// With a nil db events are only logged.
func NewAuditLogger(db *gorm.DB, logger log.Logger) (*AuditLogger, func()) {
	al := &AuditLogger{
		db:      db,
		logChan: make(chan *AuditLog, 1000), // Buffer size 1000 to prevent blocking
		logger:  log.NewHelper(logger),
		done:    make(chan struct{}),
	}

	go al.start()

	return al, al.Close
}

func (a *AuditLogger) start() {
	defer close(a.done)
	for event := range a.logChan {
		if a.db == nil {
			a.logger.Infow("msg", "audit event", "event_type", event.EventType, "details", event.Details)
			continue
		}
		if err := a.db.WithContext(context.Background()).Create(event).Error; err != nil {
			a.logger.Errorw("msg", "failed to write audit log",
				"event_type", event.EventType,
				"error", err)
		} else {
			a.logger.Debugw("msg", "audit log written", "event_type", event.EventType)
		}
	}
}

// Close stops accepting events and waits until queued events are written.
func (a *AuditLogger) Close() {
	a.closeOnce.Do(func() {
		close(a.logChan)
		<-a.done
	})
}

// LogBreakerTransition records a breaker state change.
func (a *AuditLogger) LogBreakerTransition(ctx context.Context, t model.BreakerTransition) {
	eventType := model.AuditEventBreakerTransition
	switch t.To {
	case model.BreakerOpen:
		eventType = model.AuditEventCircuitOpened
	case model.BreakerClosed:
		eventType = model.AuditEventCircuitClosed
	}
	a.enqueue(eventType, map[string]interface{}{
		"from":                 string(t.From),
		"to":                   string(t.To),
		"consecutive_failures": t.Failures,
		"at":                   t.At.UTC().Format(time.RFC3339Nano),
	})
}

// LogAlert records an error budget alert decision.
func (a *AuditLogger) LogAlert(ctx context.Context, event *model.ErrorBudgetEvent) {
	a.enqueue(model.AuditEventErrorBudgetAlert, map[string]interface{}{
		"severity":                event.Alert.Severity,
		"error_budget_remaining":  event.Alert.ErrorBudgetRemaining,
		"availability_percentage": event.Snapshot.AvailabilityPercentage,
		"total_checks":            event.Snapshot.TotalChecks,
		"environment":             event.Environment,
	})
}

// LogQueueFallback records a write that was absorbed by the fallback queue.
func (a *AuditLogger) LogQueueFallback(ctx context.Context, sample *model.HealthSample, reason string) {
	a.enqueue(model.AuditEventQueueFallback, map[string]interface{}{
		"sample_id":    sample.ID,
		"service_name": sample.ServiceName,
		"metric_type":  sample.MetricType,
		"reason":       reason,
	})
}

func (a *AuditLogger) enqueue(eventType string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal audit log details", "error", err)
		return
	}

	event := &AuditLog{EventType: eventType, Details: string(detailsJSON)}

	defer func() {
		// Send on a closed channel after shutdown.
		if r := recover(); r != nil {
			a.logger.Warnw("msg", "audit logger closed, dropping event", "event_type", eventType)
		}
	}()

	// Send to channel (non-blocking)
	select {
	case a.logChan <- event:
	default:
		a.logger.Warnw("msg", "audit log channel full, dropping event", "event_type", eventType)
	}
}
