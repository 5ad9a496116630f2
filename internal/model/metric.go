package model

// Unit is a metrics sink unit.
type Unit string

// Units understood by the metrics sink.
const (
	UnitCount        Unit = "Count"
	UnitMilliseconds Unit = "Milliseconds"
	UnitPercent      Unit = "Percent"
	UnitNone         Unit = "None"
)

// Metric names emitted by the service.
const (
	MetricServiceHealth          = "ServiceHealth"
	MetricResponseTime           = "ResponseTime"
	MetricAvailabilityPercentage = "AvailabilityPercentage"
	MetricErrorBudgetRemaining   = "ErrorBudgetRemaining"
	MetricAPISuccess             = "ApiSuccess"
	MetricAPIError               = "ApiError"
	MetricAPILatency             = "ApiLatency"
	MetricCircuitBreakerState    = "CircuitBreakerState"
	MetricWriteOutcome           = "WriteOutcome"
	MetricLogsProcessed          = "LogsProcessed"
)

// MaxDatumBatch caps how many data points are emitted per sink call.
const MaxDatumBatch = 20

// Datum is one fire-and-forget metric data point.
type Datum struct {
	Name       string
	Value      float64
	Unit       Unit
	Dimensions map[string]string
	// Custom marks client supplied metrics. They always land in the custom metric family,
	// whatever their name.
	Custom bool
}

// Dimension keys.
const (
	DimServiceName = "ServiceName"
	DimEnvironment = "Environment"
	DimMethod      = "Method"
	DimPath        = "Path"
	DimOutcome     = "Outcome"
)
