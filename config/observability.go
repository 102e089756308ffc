package config

import (
	"log/slog"
	"strings"
)

// ObservabilityConfig controls logging and the Prometheus endpoint.
type ObservabilityConfig struct {
	LogLevel       string `env:"LOG_LEVEL"                     envDefault:"info"`
	MetricsEnabled bool   `env:"OBSERVABILITY_METRICS_ENABLED" envDefault:"true"`
	MetricsPath    string `env:"OBSERVABILITY_METRICS_PATH"    envDefault:"/metrics"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.MetricsPath = strings.TrimSpace(c.MetricsPath)
	if c.MetricsPath == "" || !strings.HasPrefix(c.MetricsPath, "/") {
		c.MetricsPath = "/metrics"
	}
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c *ObservabilityConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
