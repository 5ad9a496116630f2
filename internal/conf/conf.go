package conf

import (
	"google.golang.org/protobuf/types/known/durationpb"
)

// Bootstrap is the root configuration tree.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	Resilience *Resilience
	Monitor    *Monitor
	Alert      *Alert
	Log        *Log
}

// Server holds transport settings.
type Server struct {
	Http *Server_HTTP
	Grpc *Server_GRPC
}

// Server_HTTP configures the kratos HTTP transport.
type Server_HTTP struct {
	Network     string
	Addr        string
	Timeout     *durationpb.Duration
	CorsOrigins []string
}

// Server_GRPC configures the kratos gRPC transport (health protocol only).
type Server_GRPC struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds settings for every external collaborator.
type Data struct {
	Database   *Data_Database
	Redis      *Data_Redis
	Queue      *Data_Queue
	QueryCache *Data_QueryCache
}

// Data_Database configures the health sample store.
type Data_Database struct {
	Driver        string
	Source        string
	MaxOpenConns  int
	MaxIdleConns  int
	SlowThreshold *durationpb.Duration
}

// Data_Redis configures the Redis client backing the fallback queue and report cache.
type Data_Redis struct {
	Network      string
	Addr         string
	Password     string
	Db           int
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Data_Queue configures the durable fallback queue and its replay job.
type Data_Queue struct {
	Key            string
	ProcessingKey  string
	ReplayBatch    int
	ReplaySchedule string
}

// Data_QueryCache configures the in-process cache of metric query results.
type Data_QueryCache struct {
	Size int
	Ttl  *durationpb.Duration
}

// Resilience groups breaker and retry policy.
type Resilience struct {
	Breaker *Resilience_Breaker
	Retry   *Resilience_Retry
}

// Resilience_Breaker configures the process-local circuit breaker.
type Resilience_Breaker struct {
	FailureThreshold int
	OpenTimeout      *durationpb.Duration
	// SuccessPolicy is one of reset, decay, retain.
	SuccessPolicy string
}

// Resilience_Retry configures backoff for store calls.
type Resilience_Retry struct {
	MaxAttempts int
	BaseDelay   *durationpb.Duration
	MaxJitter   *durationpb.Duration
}

// Monitor configures the scheduled health/SLO cycle.
type Monitor struct {
	Schedule           string
	ApiUrl             string
	ProbeTimeout       *durationpb.Duration
	Window             *durationpb.Duration
	TargetAvailability float64
	Environment        string
	ProxyUrl           string
}

// Alert configures error budget thresholds and dispatch.
type Alert struct {
	HighThreshold   float64
	MediumThreshold float64
	WebhookUrl      string
	WebhookTimeout  *durationpb.Duration
}

// Log configures zap output.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
