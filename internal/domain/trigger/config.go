package trigger

import (
	"time"

	"github.com/okian/clutch/pkg/logger"
)

// Config holds the classifier's gates and thresholds.
type Config struct {
	// Identity gate.
	IdentityLockWindow     time.Duration `koanf:"identity_lock_window"`
	IdentityReevaluate     time.Duration `koanf:"identity_reevaluate"`
	IdentityLockConfidence int           `koanf:"identity_lock_confidence"`
	IdentityFloor          int           `koanf:"identity_floor"`
	IdentityDecayPerMinute int           `koanf:"identity_decay_per_minute"`

	// Anti-spam gate.
	MinInterval          time.Duration `koanf:"min_interval"`
	MaxPerMinute         int           `koanf:"max_per_minute"`
	MaxSameTypePerMinute int           `koanf:"max_same_type_per_minute"`
	CriticalOverride     bool          `koanf:"critical_override"`
	HistorySize          int           `koanf:"history_size"`

	// Decision thresholds.
	ImportantThreshold  int `koanf:"important_threshold"`
	ContextualThreshold int `koanf:"contextual_threshold"`
	SupportThreshold    int `koanf:"support_threshold"`

	HalfRounds   int `koanf:"half_rounds"`
	RecentRounds int `koanf:"recent_rounds"`
}

// DefaultConfig returns the stock classifier configuration.
func DefaultConfig() Config {
	return Config{
		IdentityLockWindow:     2 * time.Minute,
		IdentityReevaluate:     5 * time.Minute,
		IdentityLockConfidence: 70,
		IdentityFloor:          30,
		IdentityDecayPerMinute: 5,
		MinInterval:            15 * time.Second,
		MaxPerMinute:           3,
		MaxSameTypePerMinute:   2,
		CriticalOverride:       true,
		HistorySize:            10,
		ImportantThreshold:     80,
		ContextualThreshold:    70,
		SupportThreshold:       50,
		HalfRounds:             15,
		RecentRounds:           10,
	}
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithConfig replaces the default configuration. Zero numeric values keep the
// default; CriticalOverride is taken as given.
func WithConfig(c Config) Option {
	return func(cl *Classifier) {
		def := DefaultConfig()
		pick := func(v, fallback int) int {
			if v > 0 {
				return v
			}
			return fallback
		}
		pickD := func(v, fallback time.Duration) time.Duration {
			if v > 0 {
				return v
			}
			return fallback
		}
		cl.cfg = Config{
			IdentityLockWindow:     pickD(c.IdentityLockWindow, def.IdentityLockWindow),
			IdentityReevaluate:     pickD(c.IdentityReevaluate, def.IdentityReevaluate),
			IdentityLockConfidence: pick(c.IdentityLockConfidence, def.IdentityLockConfidence),
			IdentityFloor:          pick(c.IdentityFloor, def.IdentityFloor),
			IdentityDecayPerMinute: pick(c.IdentityDecayPerMinute, def.IdentityDecayPerMinute),
			MinInterval:            pickD(c.MinInterval, def.MinInterval),
			MaxPerMinute:           pick(c.MaxPerMinute, def.MaxPerMinute),
			MaxSameTypePerMinute:   pick(c.MaxSameTypePerMinute, def.MaxSameTypePerMinute),
			CriticalOverride:       c.CriticalOverride,
			HistorySize:            pick(c.HistorySize, def.HistorySize),
			ImportantThreshold:     pick(c.ImportantThreshold, def.ImportantThreshold),
			ContextualThreshold:    pick(c.ContextualThreshold, def.ContextualThreshold),
			SupportThreshold:       pick(c.SupportThreshold, def.SupportThreshold),
			HalfRounds:             pick(c.HalfRounds, def.HalfRounds),
			RecentRounds:           pick(c.RecentRounds, def.RecentRounds),
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Classifier) {
		if l != nil {
			cl.logger = l
		}
	}
}
