package compress

import (
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
)

// Payload keys.
const (
	keyPlayer     = "p"
	keyGame       = "g"
	keyEconomy    = "eco"
	keyWeapon     = "w"
	keyUtility    = "ut"
	keyBomb       = "bomb"
	keyKit        = "kit"
	keyClock      = "t"
	keyMap        = "map"
	keyEnemies    = "en"
	keyTeammates  = "tm"
	keyLosses     = "ls"
	keyMatchStats = "kd"
	keyRoundKills = "rk"
	keyDelta      = "d"
)

const (
	defaultMaxTokens = 120
	armorMoney       = 650
	rifleMoney       = 2700
)

type profile struct {
	name     string
	required []string
	optional []string
}

var (
	profileRoundStart = profile{"round_start", []string{keyPlayer, keyGame, keyEconomy}, []string{keyWeapon, keyLosses, keyMap}}
	profileBomb       = profile{"bomb", []string{keyPlayer, keyBomb, keyClock, keyKit, keyMap}, []string{keyUtility, keyEnemies}}
	profileClutch     = profile{"clutch", []string{keyPlayer, keyEnemies, keyClock, keyUtility}, []string{keyBomb, keyKit, keyMap}}
	profileEconomy    = profile{"economy", []string{keyPlayer, keyEconomy}, []string{keyLosses, keyGame}}
	profileKill       = profile{"kill", []string{keyPlayer, keyRoundKills, keyWeapon}, []string{keyGame, keyMatchStats, keyEnemies}}
	profileHealth     = profile{"health", []string{keyPlayer, keyTeammates}, []string{keyEnemies, keyUtility, keyGame}}
	profileGeneral    = profile{"general", []string{keyPlayer, keyGame}, []string{keyDelta, keyMatchStats}}
)

func profileFor(kind model.EventKind) profile {
	switch {
	case kind.IsRoundStart():
		return profileRoundStart
	case kind.IsMultiKill(), kind == model.KindRapidKills:
		return profileKill
	}
	switch kind {
	case model.KindBombPlanted, model.KindBombDefusing:
		return profileBomb
	case model.KindClutch:
		return profileClutch
	case model.KindEconomyShift, model.KindLowEconomy:
		return profileEconomy
	case model.KindLowHealth, model.KindCriticalHealth:
		return profileHealth
	default:
		return profileGeneral
	}
}

// RequiredKeys lists the keys always present for kind.
func RequiredKeys(kind model.EventKind) []string {
	return append([]string(nil), profileFor(kind).required...)
}

// Config holds compressor settings.
type Config struct {
	MaxTokens int `koanf:"max_tokens"`
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithMaxTokens sets the output budget in approximate tokens. Zero or less
// disables size pressure.
func WithMaxTokens(n int) Option {
	return func(c *Compressor) {
		c.maxTokens = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compressor) {
		if l != nil {
			c.logger = l
		}
	}
}
