package orchestrator

import (
	"time"

	"github.com/okian/clutch/pkg/logger"
)

// Config holds dispatch pacing and cooldown windows.
type Config struct {
	Tick             time.Duration `koanf:"tick"`
	MinInterval      time.Duration `koanf:"min_interval"`
	ThrottleCooldown time.Duration `koanf:"throttle_cooldown"`
	MaxDepth         int           `koanf:"max_depth"`

	DefaultCooldown    time.Duration `koanf:"default_cooldown"`
	ShortCooldown      time.Duration `koanf:"short_cooldown"`
	SideSwitchCooldown time.Duration `koanf:"side_switch_cooldown"`
}

// DefaultConfig returns the stock orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Tick:               time.Second,
		MinInterval:        10 * time.Second,
		ThrottleCooldown:   time.Minute,
		MaxDepth:           32,
		DefaultCooldown:    30 * time.Second,
		ShortCooldown:      10 * time.Second,
		SideSwitchCooldown: 5 * time.Second,
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the default configuration. Zero values keep the default.
func WithConfig(c Config) Option {
	return func(o *Orchestrator) {
		def := DefaultConfig()
		if c.Tick > 0 {
			def.Tick = c.Tick
		}
		if c.MinInterval > 0 {
			def.MinInterval = c.MinInterval
		}
		if c.ThrottleCooldown > 0 {
			def.ThrottleCooldown = c.ThrottleCooldown
		}
		if c.MaxDepth > 0 {
			def.MaxDepth = c.MaxDepth
		}
		if c.DefaultCooldown > 0 {
			def.DefaultCooldown = c.DefaultCooldown
		}
		if c.ShortCooldown > 0 {
			def.ShortCooldown = c.ShortCooldown
		}
		if c.SideSwitchCooldown > 0 {
			def.SideSwitchCooldown = c.SideSwitchCooldown
		}
		o.cfg = def
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now for cooldown and pacing decisions.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
