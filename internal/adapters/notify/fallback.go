package notify

import "github.com/okian/clutch/internal/domain/model"

var fallbacks = map[model.EventKind]string{
	model.KindRoundStart:         "New round. Stick to the plan and keep comms short.",
	model.KindRoundStartPistol:   "Pistol round. Armor or utility, then play together.",
	model.KindRoundStartEco:      "Eco round. Stack up, hunt for a pick and save what you can.",
	model.KindRoundStartForce:    "Force buy. Play close angles and trade your teammates.",
	model.KindRoundStartDecisive: "Big round. Slow down and play for the trade.",
	model.KindTripleKill:         "Great round. Keep the same pace.",
	model.KindQuadKill:           "Huge round. Stay calm and close it out.",
	model.KindAce:                "Ace! Reset and keep that focus.",
	model.KindLowHealth:          "Low health. Find cover and play for info.",
	model.KindCriticalHealth:     "One-shot. Fall back and let teammates take contact.",
	model.KindEconomyShift:       "Economy changed. Adjust your buy with the team.",
	model.KindLowEconomy:         "Low money. Coordinate the save with your team.",
	model.KindBombPlanted:        "Bomb planted. Stay calm and play the clock.",
	model.KindBombDefusing:       "Defuse in progress. Check the timer and commit or stop the kit.",
	model.KindClutch:             "Clutch time. Breathe, isolate the duels and use the clock.",
	model.KindSideSwitch:         "Side switch. Reset your mindset for the new half.",
	model.KindOvertimeStart:      "Overtime. Every round counts, play disciplined.",
}

const defaultFallback = "Stay focused and keep the current plan."

// Fallback returns a canned line for kind, used when inference fails.
func Fallback(kind model.EventKind) string {
	if s, ok := fallbacks[kind]; ok {
		return s
	}
	return defaultFallback
}
