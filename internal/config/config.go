package config

import (
	"fmt"
	"time"
)

// Default values shared by Defaults and applyDefaults.
const (
	DefaultDatabase  = "RETAIL_DB"
	DefaultSchema    = "ABT_BUY"
	DefaultTimeoutMs = 30000
	DefaultPort      = 8501
	DefaultTitle     = "Retail Intelligence Platform"
	DefaultPrompt    = "Show price comparisons"
	DefaultMinScore  = 0.8
	DefaultRowLimit  = 50
	DefaultTokenType = "PROGRAMMATIC_ACCESS_TOKEN"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Platform: PlatformConfig{
			Database:  DefaultDatabase,
			Schema:    DefaultSchema,
			TimeoutMs: DefaultTimeoutMs,
			Auth: PlatformAuth{
				Mode:      "token",
				TokenType: DefaultTokenType,
			},
		},
		Warehouse: WarehouseConfig{
			Driver: "snowflake",
		},
		Analytics: AnalyticsConfig{
			Enabled:  true,
			MinScore: DefaultMinScore,
			RowLimit: DefaultRowLimit,
		},
		Dashboard: DashboardConfig{
			Title:         DefaultTitle,
			DefaultPrompt: DefaultPrompt,
			Port:          DefaultPort,
			Bind:          "loopback",
			Auth: DashboardAuth{
				Mode: "none",
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// Timeout returns the agent API timeout as a duration.
func (p PlatformConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}
