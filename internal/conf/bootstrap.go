// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Breaker success policies accepted by resilience.breaker.success_policy.
const (
	SuccessPolicyReset  = "reset"
	SuccessPolicyDecay  = "decay"
	SuccessPolicyRetain = "retain"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with HEALTHPULSE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or HEALTHPULSE_DATA_DATABASE_SOURCE: MySQL connection string
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("HEALTHPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy deployment variable names
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "HEALTHPULSE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "HEALTHPULSE_DATA_REDIS_ADDR")
	_ = v.BindEnv("monitor.api_url", "API_URL", "HEALTHPULSE_MONITOR_API_URL")
	_ = v.BindEnv("monitor.environment", "ENVIRONMENT", "HEALTHPULSE_MONITOR_ENVIRONMENT")
	_ = v.BindEnv("alert.webhook_url", "ALERT_WEBHOOK_URL", "HEALTHPULSE_ALERT_WEBHOOK_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network:     v.GetString("server.http.network"),
				Addr:        v.GetString("server.http.addr"),
				Timeout:     durationpb.New(v.GetDuration("server.http.timeout")),
				CorsOrigins: v.GetStringSlice("server.http.cors_origins"),
			},
			Grpc: &Server_GRPC{
				Network: v.GetString("server.grpc.network"),
				Addr:    v.GetString("server.grpc.addr"),
				Timeout: durationpb.New(v.GetDuration("server.grpc.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver:        v.GetString("data.database.driver"),
				Source:        v.GetString("data.database.source"),
				MaxOpenConns:  v.GetInt("data.database.max_open_conns"),
				MaxIdleConns:  v.GetInt("data.database.max_idle_conns"),
				SlowThreshold: durationpb.New(v.GetDuration("data.database.slow_threshold")),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				Db:           v.GetInt("data.redis.db"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
			Queue: &Data_Queue{
				Key:            v.GetString("data.queue.key"),
				ProcessingKey:  v.GetString("data.queue.processing_key"),
				ReplayBatch:    v.GetInt("data.queue.replay_batch"),
				ReplaySchedule: v.GetString("data.queue.replay_schedule"),
			},
			QueryCache: &Data_QueryCache{
				Size: v.GetInt("data.query_cache.size"),
				Ttl:  durationpb.New(v.GetDuration("data.query_cache.ttl")),
			},
		},
		Resilience: &Resilience{
			Breaker: &Resilience_Breaker{
				FailureThreshold: v.GetInt("resilience.breaker.failure_threshold"),
				OpenTimeout:      durationpb.New(v.GetDuration("resilience.breaker.open_timeout")),
				SuccessPolicy:    strings.ToLower(v.GetString("resilience.breaker.success_policy")),
			},
			Retry: &Resilience_Retry{
				MaxAttempts: v.GetInt("resilience.retry.max_attempts"),
				BaseDelay:   durationpb.New(v.GetDuration("resilience.retry.base_delay")),
				MaxJitter:   durationpb.New(v.GetDuration("resilience.retry.max_jitter")),
			},
		},
		Monitor: &Monitor{
			Schedule:           v.GetString("monitor.schedule"),
			ApiUrl:             strings.TrimRight(v.GetString("monitor.api_url"), "/"),
			ProbeTimeout:       durationpb.New(v.GetDuration("monitor.probe_timeout")),
			Window:             durationpb.New(v.GetDuration("monitor.window")),
			TargetAvailability: v.GetFloat64("monitor.target_availability"),
			Environment:        v.GetString("monitor.environment"),
			ProxyUrl:           v.GetString("monitor.proxy_url"),
		},
		Alert: &Alert{
			HighThreshold:   v.GetFloat64("alert.high_threshold"),
			MediumThreshold: v.GetFloat64("alert.medium_threshold"),
			WebhookUrl:      v.GetString("alert.webhook_url"),
			WebhookTimeout:  durationpb.New(v.GetDuration("alert.webhook_timeout")),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)
	v.SetDefault("server.http.cors_origins", []string{"*"})

	v.SetDefault("server.grpc.network", "tcp")
	v.SetDefault("server.grpc.addr", ":9090")
	v.SetDefault("server.grpc.timeout", 30*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment
	v.SetDefault("data.database.max_open_conns", 100)
	v.SetDefault("data.database.max_idle_conns", 10)
	v.SetDefault("data.database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("data.queue.key", "healthpulse:fallback")
	v.SetDefault("data.queue.processing_key", "healthpulse:fallback:processing")
	v.SetDefault("data.queue.replay_batch", 50)
	v.SetDefault("data.queue.replay_schedule", "@every 1m")

	v.SetDefault("data.query_cache.size", 256)
	v.SetDefault("data.query_cache.ttl", 30*time.Second)

	v.SetDefault("resilience.breaker.failure_threshold", 5)
	v.SetDefault("resilience.breaker.open_timeout", 60*time.Second)
	v.SetDefault("resilience.breaker.success_policy", SuccessPolicyReset)

	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.base_delay", time.Second)
	v.SetDefault("resilience.retry.max_jitter", time.Second)

	v.SetDefault("monitor.schedule", "@every 5m")
	v.SetDefault("monitor.probe_timeout", 10*time.Second)
	v.SetDefault("monitor.window", 24*time.Hour)
	v.SetDefault("monitor.target_availability", 99.9)
	v.SetDefault("monitor.environment", "dev")

	v.SetDefault("alert.high_threshold", 0.05)
	v.SetDefault("alert.medium_threshold", 0.075)
	v.SetDefault("alert.webhook_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing every problem found.
func Validate(bc *Bootstrap) error {
	var problems []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		problems = append(problems, "data.database.source (MYSQL_DSN) is required")
	}

	if r := bc.Resilience; r == nil || r.Breaker == nil || r.Retry == nil {
		problems = append(problems, "resilience section is required")
	} else {
		if r.Breaker.FailureThreshold < 1 {
			problems = append(problems, "resilience.breaker.failure_threshold must be >= 1")
		}
		if r.Breaker.OpenTimeout.AsDuration() <= 0 {
			problems = append(problems, "resilience.breaker.open_timeout must be positive")
		}
		switch r.Breaker.SuccessPolicy {
		case SuccessPolicyReset, SuccessPolicyDecay, SuccessPolicyRetain:
		default:
			problems = append(problems, fmt.Sprintf("resilience.breaker.success_policy %q is not one of reset, decay, retain", r.Breaker.SuccessPolicy))
		}
		if r.Retry.MaxAttempts < 1 {
			problems = append(problems, "resilience.retry.max_attempts must be >= 1")
		}
	}

	if bc.Monitor != nil {
		if t := bc.Monitor.TargetAvailability; t <= 0 || t >= 100 {
			problems = append(problems, "monitor.target_availability must be within (0, 100)")
		}
	}

	if bc.Alert != nil && bc.Alert.HighThreshold >= bc.Alert.MediumThreshold {
		problems = append(problems, "alert.high_threshold must be below alert.medium_threshold")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}
