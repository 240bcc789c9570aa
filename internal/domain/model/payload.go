package model

import (
	"fmt"
	"time"
)

// Payload is the typed body of a DetectedEvent. The set of implementations is closed.
type Payload interface {
	Fields() map[string]any
	payload()
}

// RoundStartPayload accompanies every round start variant.
type RoundStartPayload struct {
	Round      int
	Side       Side
	Money      int
	ScoreOwn   int
	ScoreOpp   int
	MatchPoint bool
}

func (RoundStartPayload) payload() {}

func (p RoundStartPayload) Fields() map[string]any {
	return map[string]any{
		"round":       p.Round,
		"side":        p.Side.String(),
		"money":       p.Money,
		"score":       fmt.Sprintf("%d-%d", p.ScoreOwn, p.ScoreOpp),
		"match_point": p.MatchPoint,
	}
}

// MultiKillPayload accompanies double, triple, quad and ace.
type MultiKillPayload struct {
	Kills  int
	Weapon string
	Health int
}

func (MultiKillPayload) payload() {}

func (p MultiKillPayload) Fields() map[string]any {
	return map[string]any{"kills": p.Kills, "weapon": p.Weapon, "health": p.Health}
}

// RapidKillPayload accompanies rapid_kills.
type RapidKillPayload struct {
	Streak int
	Gap    time.Duration
}

func (RapidKillPayload) payload() {}

func (p RapidKillPayload) Fields() map[string]any {
	return map[string]any{"streak": p.Streak, "gap_ms": p.Gap.Milliseconds()}
}

// HealthPayload accompanies low_health and critical_health.
type HealthPayload struct {
	Health   int
	Previous int
	Armor    int
}

func (HealthPayload) payload() {}

func (p HealthPayload) Fields() map[string]any {
	return map[string]any{"health": p.Health, "previous": p.Previous, "armor": p.Armor}
}

// EconomyShiftPayload accompanies economy_shift.
type EconomyShiftPayload struct {
	Previous   int
	Current    int
	CanFullBuy bool
}

func (EconomyShiftPayload) payload() {}

// Change is the signed money delta.
func (p EconomyShiftPayload) Change() int { return p.Current - p.Previous }

func (p EconomyShiftPayload) Fields() map[string]any {
	return map[string]any{
		"previous":     p.Previous,
		"current":      p.Current,
		"change":       p.Change(),
		"can_full_buy": p.CanFullBuy,
	}
}

// LowEconomyPayload accompanies low_economy.
type LowEconomyPayload struct {
	Money       int
	CanBuyArmor bool
	CanBuyRifle bool
}

func (LowEconomyPayload) payload() {}

func (p LowEconomyPayload) Fields() map[string]any {
	return map[string]any{"money": p.Money, "can_buy_armor": p.CanBuyArmor, "can_buy_rifle": p.CanBuyRifle}
}

// BombPayload accompanies bomb_planted and bomb_defusing.
type BombPayload struct {
	Side          Side
	TimeRemaining int
	Site          string
	DefuseKit     bool
	DefuseSeconds int
}

func (BombPayload) payload() {}

func (p BombPayload) Fields() map[string]any {
	f := map[string]any{
		"side":           p.Side.String(),
		"time_remaining": p.TimeRemaining,
		"defuse_kit":     p.DefuseKit,
	}
	if p.Site != "" {
		f["site"] = p.Site
	}
	if p.DefuseSeconds > 0 {
		f["defuse_seconds"] = p.DefuseSeconds
	}
	return f
}

// ClutchPayload accompanies clutch.
type ClutchPayload struct {
	Enemies     int
	Health      int
	Armor       int
	Money       int
	BombPlanted bool
	DefuseKit   bool
}

func (ClutchPayload) payload() {}

// Situation renders the clutch as 1vN.
func (p ClutchPayload) Situation() string { return fmt.Sprintf("1v%d", p.Enemies) }

func (p ClutchPayload) Fields() map[string]any {
	return map[string]any{
		"situation":    p.Situation(),
		"enemies":      p.Enemies,
		"health":       p.Health,
		"armor":        p.Armor,
		"money":        p.Money,
		"bomb_planted": p.BombPlanted,
		"defuse_kit":   p.DefuseKit,
	}
}

// SideSwitchPayload accompanies side_switch.
type SideSwitchPayload struct {
	From Side
	To   Side
}

func (SideSwitchPayload) payload() {}

func (p SideSwitchPayload) Fields() map[string]any {
	return map[string]any{"from": p.From.String(), "to": p.To.String()}
}

// OvertimePayload accompanies overtime_start.
type OvertimePayload struct {
	ScoreCT int
	ScoreT  int
}

func (OvertimePayload) payload() {}

func (p OvertimePayload) Fields() map[string]any {
	return map[string]any{"score": fmt.Sprintf("%d-%d", p.ScoreCT, p.ScoreT)}
}

// RoundEndPayload accompanies round_end.
type RoundEndPayload struct {
	Round  int
	Winner Side
	Won    bool
	Kills  int
	Health int
}

func (RoundEndPayload) payload() {}

func (p RoundEndPayload) Fields() map[string]any {
	return map[string]any{
		"round":  p.Round,
		"winner": p.Winner.String(),
		"won":    p.Won,
		"kills":  p.Kills,
		"health": p.Health,
	}
}
