package config

import (
	redisclient "github.com/tranvd/aegis/internal/infra/redis"
	"github.com/tranvd/aegis/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Engine   EngineConfig       `yaml:"engine"`
	Logging  LoggingConfig      `yaml:"logging"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EngineConfig holds recovery engine tuning.
type EngineConfig struct {
	MaxRetries            int               `yaml:"max_retries"`
	BreakerThreshold      int               `yaml:"breaker_threshold"`
	BreakerTimeoutSeconds int               `yaml:"breaker_timeout_seconds"`
	HistoryCap            int               `yaml:"history_cap"` // 0 = default (10000), negative = unbounded
	DefaultRetryDelaySecs int               `yaml:"default_retry_delay_seconds"`
	SeverityOverrides     map[string]string `yaml:"severity_overrides"`
}
