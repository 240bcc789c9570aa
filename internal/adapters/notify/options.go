package notify

import (
	"time"

	"github.com/okian/clutch/pkg/logger"
)

// Config controls duplicate suppression, the recent ring and fallbacks.
type Config struct {
	DedupeWindow time.Duration `koanf:"dedupe_window"`
	RecentSize   int           `koanf:"recent_size"`
	Fallback     bool          `koanf:"fallback"`
}

// DefaultConfig returns the stock notify configuration.
func DefaultConfig() Config {
	return Config{
		DedupeWindow: 30 * time.Second,
		RecentSize:   50,
		Fallback:     true,
	}
}

// Option configures a Hub.
type Option func(*Hub)

// WithConfig replaces the default configuration. Zero durations and sizes
// keep the default; Fallback is taken as given.
func WithConfig(c Config) Option {
	return func(h *Hub) {
		def := DefaultConfig()
		if c.DedupeWindow > 0 {
			def.DedupeWindow = c.DedupeWindow
		}
		if c.RecentSize > 0 {
			def.RecentSize = c.RecentSize
		}
		def.Fallback = c.Fallback
		h.cfg = def
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// WithSink registers a sink at construction.
func WithSink(s Sink) Option {
	return func(h *Hub) {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
}
