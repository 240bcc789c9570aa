package differ

import (
	"time"

	"github.com/okian/clutch/pkg/logger"
)

// Thresholds holds the fixed boundaries detectors compare against.
type Thresholds struct {
	LowHealth           int           `koanf:"low_health"`
	CriticalHealth      int           `koanf:"critical_health"`
	LowMoney            int           `koanf:"low_money"`
	ForceBuyMoney       int           `koanf:"force_buy_money"`
	EconomyShift        int           `koanf:"economy_shift"`
	FullBuyMoney        int           `koanf:"full_buy_money"`
	ArmorMoney          int           `koanf:"armor_money"`
	RifleMoney          int           `koanf:"rifle_money"`
	RapidKillWindow     time.Duration `koanf:"rapid_kill_window"`
	ClutchMinEnemies    int           `koanf:"clutch_min_enemies"`
	HealthWarnInterval  time.Duration `koanf:"health_warn_interval"`
	EconomyWarnInterval time.Duration `koanf:"economy_warn_interval"`
	DefuseSecondsKit    int           `koanf:"defuse_seconds_kit"`
	DefuseSecondsNoKit  int           `koanf:"defuse_seconds_no_kit"`
	// HalfRounds is the regulation half length; 15 for MR15, 12 for MR12.
	HalfRounds int `koanf:"half_rounds"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowHealth:           30,
		CriticalHealth:      15,
		LowMoney:            1500,
		ForceBuyMoney:       3000,
		EconomyShift:        2000,
		FullBuyMoney:        4750,
		ArmorMoney:          650,
		RifleMoney:          2700,
		RapidKillWindow:     5 * time.Second,
		ClutchMinEnemies:    2,
		HealthWarnInterval:  10 * time.Second,
		EconomyWarnInterval: 15 * time.Second,
		DefuseSecondsKit:    5,
		DefuseSecondsNoKit:  10,
		HalfRounds:          15,
	}
}

// Option configures a Differ.
type Option func(*Differ)

// WithThresholds replaces the default thresholds. Zero values keep the default.
func WithThresholds(t Thresholds) Option {
	return func(d *Differ) {
		def := DefaultThresholds()
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
		d.th = Thresholds{
			LowHealth:           pick(t.LowHealth, def.LowHealth),
			CriticalHealth:      pick(t.CriticalHealth, def.CriticalHealth),
			LowMoney:            pick(t.LowMoney, def.LowMoney),
			ForceBuyMoney:       pick(t.ForceBuyMoney, def.ForceBuyMoney),
			EconomyShift:        pick(t.EconomyShift, def.EconomyShift),
			FullBuyMoney:        pick(t.FullBuyMoney, def.FullBuyMoney),
			ArmorMoney:          pick(t.ArmorMoney, def.ArmorMoney),
			RifleMoney:          pick(t.RifleMoney, def.RifleMoney),
			RapidKillWindow:     pickD(t.RapidKillWindow, def.RapidKillWindow),
			ClutchMinEnemies:    pick(t.ClutchMinEnemies, def.ClutchMinEnemies),
			HealthWarnInterval:  pickD(t.HealthWarnInterval, def.HealthWarnInterval),
			EconomyWarnInterval: pickD(t.EconomyWarnInterval, def.EconomyWarnInterval),
			DefuseSecondsKit:    pick(t.DefuseSecondsKit, def.DefuseSecondsKit),
			DefuseSecondsNoKit:  pick(t.DefuseSecondsNoKit, def.DefuseSecondsNoKit),
			HalfRounds:          pick(t.HalfRounds, def.HalfRounds),
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Differ) {
		if l != nil {
			d.logger = l
		}
	}
}
