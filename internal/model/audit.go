package model

// Audit event type constants
const (
	AuditEventBreakerTransition = "BREAKER_TRANSITION"
	AuditEventCircuitOpened     = "CIRCUIT_OPENED"
	AuditEventCircuitClosed     = "CIRCUIT_CLOSED"
	AuditEventErrorBudgetAlert  = "ERROR_BUDGET_ALERT"
	AuditEventQueueFallback     = "QUEUE_FALLBACK"
)
