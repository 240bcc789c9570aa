// Package config defines service configuration structures and loading hooks.
//
// Every component keeps its own Config type next to its code; this package
// nests them under one document so a single YAML file or CLUTCH_* variable
// set can tune the whole pipeline.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/clutch/internal/adapters/inference"
	"github.com/okian/clutch/internal/adapters/mq/orchestrator"
	"github.com/okian/clutch/internal/adapters/notify"
	"github.com/okian/clutch/internal/domain/compress"
	"github.com/okian/clutch/internal/domain/differ"
	"github.com/okian/clutch/internal/domain/memory"
	"github.com/okian/clutch/internal/domain/trigger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Ingress      Ingress             `koanf:"ingress"`
	Differ       differ.Thresholds   `koanf:"differ"`
	Trigger      trigger.Config      `koanf:"trigger"`
	Orchestrator orchestrator.Config `koanf:"orchestrator"`
	Compress     compress.Config     `koanf:"compress"`
	Memory       memory.Config       `koanf:"memory"`
	Inference    inference.Config    `koanf:"inference"`
	Notify       notify.Config       `koanf:"notify"`
}

// Ingress guards the telemetry endpoint.
type Ingress struct {
	// AuthToken, when set, must match the document's auth.token.
	AuthToken     string  `koanf:"auth_token"`
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
	MaxBodyBytes  int64   `koanf:"max_body_bytes"`
}

// New creates a Config with defaults.
func New() *Config {
	mem := memory.DefaultConfig()
	mem.Path = "data/memory.json.zst"
	return &Config{
		LogLevel:        "info",
		LogFormat:       "json",
		Addr:            ":3000",
		ShutdownTimeout: 10 * time.Second,
		Ingress: Ingress{
			RatePerSecond: 20,
			Burst:         40,
			MaxBodyBytes:  1 << 20,
		},
		Differ:       differ.DefaultThresholds(),
		Trigger:      trigger.DefaultConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		Compress:     compress.Config{MaxTokens: 120},
		Memory:       mem,
		Inference:    inference.DefaultConfig(),
		Notify:       notify.DefaultConfig(),
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	case c.Ingress.RatePerSecond <= 0 || c.Ingress.Burst <= 0:
		return fmt.Errorf("%w: ingress rate and burst must be positive", ErrInvalidConfig)
	case c.Ingress.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: ingress.max_body_bytes must be positive", ErrInvalidConfig)
	case c.Trigger.ContextualThreshold > c.Trigger.ImportantThreshold:
		return fmt.Errorf("%w: trigger.contextual_threshold above important_threshold", ErrInvalidConfig)
	case c.Trigger.SupportThreshold > c.Trigger.ContextualThreshold:
		return fmt.Errorf("%w: trigger.support_threshold above contextual_threshold", ErrInvalidConfig)
	case c.Memory.Cap < 0 || c.Memory.MaxResults < 0:
		return fmt.Errorf("%w: memory limits must not be negative", ErrInvalidConfig)
	case c.Memory.SameThreshold > 1 || c.Memory.OtherThreshold > 1 || c.Memory.OtherPenalty > 1:
		return fmt.Errorf("%w: memory thresholds must be within [0, 1]", ErrInvalidConfig)
	case c.Inference.Timeout < 0 || c.Inference.RequestsPerMinute < 0:
		return fmt.Errorf("%w: inference limits must not be negative", ErrInvalidConfig)
	case c.LogFormat != "json" && c.LogFormat != "text":
		return fmt.Errorf("%w: log_format must be json or text", ErrInvalidConfig)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
}
