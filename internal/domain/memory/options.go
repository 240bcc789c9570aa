package memory

import (
	"time"

	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
)

// Config holds memory limits, similarity tuning and persistence settings.
type Config struct {
	Cap                int           `koanf:"cap"`
	Retention          time.Duration `koanf:"retention"`
	MaxResults         int           `koanf:"max_results"`
	SameThreshold      float64       `koanf:"same_threshold"`
	OtherThreshold     float64       `koanf:"other_threshold"`
	OtherPenalty       float64       `koanf:"other_penalty"`
	Weights            Weights       `koanf:"weights"`
	SweepInterval      time.Duration `koanf:"sweep_interval"`
	CheckpointInterval time.Duration `koanf:"checkpoint_interval"`

	// Path of the checkpoint file; a ".zst" suffix enables zstd. Empty keeps
	// memory in-process only.
	Path string `koanf:"path"`
}

// DefaultConfig returns the stock memory configuration.
func DefaultConfig() Config {
	return Config{
		Cap:                200,
		Retention:          30 * 24 * time.Hour,
		MaxResults:         5,
		SameThreshold:      0.6,
		OtherThreshold:     0.5,
		OtherPenalty:       0.7,
		Weights:            DefaultWeights(),
		SweepInterval:      time.Hour,
		CheckpointInterval: time.Minute,
	}
}

// SessionState is the non-memory state saved alongside records.
type SessionState struct {
	Identity  *model.PlayerIdentity `json:"identity,omitempty"`
	Cooldowns []model.CooldownEntry `json:"cooldowns,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithConfig replaces the default configuration. Zero values keep the default.
func WithConfig(c Config) Option {
	return func(s *Store) {
		def := DefaultConfig()
		if c.Cap > 0 {
			def.Cap = c.Cap
		}
		if c.Retention > 0 {
			def.Retention = c.Retention
		}
		if c.MaxResults > 0 {
			def.MaxResults = c.MaxResults
		}
		if c.SameThreshold > 0 {
			def.SameThreshold = c.SameThreshold
		}
		if c.OtherThreshold > 0 {
			def.OtherThreshold = c.OtherThreshold
		}
		if c.OtherPenalty > 0 {
			def.OtherPenalty = c.OtherPenalty
		}
		if c.Weights.total() > 0 {
			def.Weights = c.Weights
		}
		if c.SweepInterval > 0 {
			def.SweepInterval = c.SweepInterval
		}
		if c.CheckpointInterval > 0 {
			def.CheckpointInterval = c.CheckpointInterval
		}
		def.Path = c.Path
		s.cfg = def
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionState registers a provider for the state written with each
// checkpoint.
func WithSessionState(fn func() SessionState) Option {
	return func(s *Store) {
		s.session = fn
	}
}
