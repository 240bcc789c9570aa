package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/okian/clutch/internal/domain/model"
)

const (
	healthBucket = 25
	moneyBucket  = 1000
)

// situationKeywords are matched in order against the situation type.
var situationKeywords = []string{
	"triple_kill", "quad_kill", "ace", "clutch", "bomb_planted",
	"low_health", "round_start", "economy",
}

// Fingerprint is a pure function of the situation type, round, side, health
// in 25-point buckets, money in 1000 buckets and the score.
func Fingerprint(s model.Situation) string {
	canonical := fmt.Sprintf("%s|%d|%s|%d|%d|%s",
		s.Type,
		s.Round,
		s.Side,
		s.Health/healthBucket*healthBucket,
		s.Money/moneyBucket*moneyBucket,
		s.Score(),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// SituationKey groups situation types for similarity lookups.
func SituationKey(situationType string) string {
	t := strings.ToLower(situationType)
	for _, k := range situationKeywords {
		if strings.Contains(t, k) {
			return k
		}
	}
	return "general"
}

// SituationFor extracts the keyed features of snap for an event kind.
func SituationFor(kind model.EventKind, snap *model.Snapshot) model.Situation {
	return model.Situation{
		Type:     kind.String(),
		PlayerID: snap.Subject(),
		Round:    snap.RoundNumber(),
		Side:     snap.Side,
		Health:   snap.Vitals.Health,
		Money:    snap.Vitals.Money,
		ScoreCT:  snap.ScoreCT,
		ScoreT:   snap.ScoreT,
	}
}

// Weights are the similarity factor weights. They need not sum to one; the
// result is normalized by the total weight.
type Weights struct {
	Side   float64 `koanf:"side"`
	Health float64 `koanf:"health"`
	Money  float64 `koanf:"money"`
	Round  float64 `koanf:"round"`
	Score  float64 `koanf:"score"`
}

// DefaultWeights returns the stock similarity weights.
func DefaultWeights() Weights {
	return Weights{Side: 0.3, Health: 0.2, Money: 0.2, Round: 0.1, Score: 0.2}
}

func (w Weights) total() float64 { return w.Side + w.Health + w.Money + w.Round + w.Score }

// Similarity scores two situations in [0, 1].
func Similarity(a, b model.Situation, w Weights) float64 {
	total := w.total()
	if total <= 0 {
		return 0
	}
	s := 0.0
	if a.Side == b.Side && a.Side != model.SideUnknown {
		s += w.Side
	}
	s += closeness(a.Health, b.Health, 100) * w.Health
	s += closeness(a.Money, b.Money, 5000) * w.Money
	s += closeness(a.Round, b.Round, 15) * w.Round
	if a.Score() == b.Score() {
		s += w.Score
	}
	return s / total
}

func closeness(a, b, span int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d >= span {
		return 0
	}
	return float64(span-d) / float64(span)
}
