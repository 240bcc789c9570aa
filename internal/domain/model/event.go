package model

import (
	"fmt"
	"time"
)

// EventKind enumerates every transition the differencer can report.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindRoundStart
	KindRoundStartPistol
	KindRoundStartEco
	KindRoundStartForce
	KindRoundStartDecisive
	KindDoubleKill
	KindTripleKill
	KindQuadKill
	KindAce
	KindRapidKills
	KindLowHealth
	KindCriticalHealth
	KindEconomyShift
	KindLowEconomy
	KindBombPlanted
	KindBombDefusing
	KindClutch
	KindSideSwitch
	KindOvertimeStart
	KindRoundEnd
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindRoundStart:         "round_start",
	KindRoundStartPistol:   "round_start_pistol",
	KindRoundStartEco:      "round_start_eco",
	KindRoundStartForce:    "round_start_force",
	KindRoundStartDecisive: "round_start_decisive",
	KindDoubleKill:         "double_kill",
	KindTripleKill:         "triple_kill",
	KindQuadKill:           "quad_kill",
	KindAce:                "ace",
	KindRapidKills:         "rapid_kills",
	KindLowHealth:          "low_health",
	KindCriticalHealth:     "critical_health",
	KindEconomyShift:       "economy_shift",
	KindLowEconomy:         "low_economy",
	KindBombPlanted:        "bomb_planted",
	KindBombDefusing:       "bomb_defusing",
	KindClutch:             "clutch",
	KindSideSwitch:         "side_switch",
	KindOvertimeStart:      "overtime_start",
	KindRoundEnd:           "round_end",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseEventKind is the inverse of String.
func ParseEventKind(s string) (EventKind, bool) {
	for i, name := range kindNames {
		if name == s && EventKind(i) != KindUnknown {
			return EventKind(i), true
		}
	}
	return KindUnknown, false
}

// AllKinds lists every known kind, excluding KindUnknown.
func AllKinds() []EventKind {
	out := make([]EventKind, 0, len(kindNames)-1)
	for i := 1; i < len(kindNames); i++ {
		out = append(out, EventKind(i))
	}
	return out
}

// IsRoundStart reports whether k is any round start variant.
func (k EventKind) IsRoundStart() bool {
	return k >= KindRoundStart && k <= KindRoundStartDecisive
}

// IsMultiKill reports whether k is a round kill milestone.
func (k EventKind) IsMultiKill() bool {
	return k >= KindDoubleKill && k <= KindAce
}

// MarshalText renders the kind by name.
func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind by name.
func (k *EventKind) UnmarshalText(b []byte) error {
	v, ok := ParseEventKind(string(b))
	if !ok {
		return fmt.Errorf("unknown event kind %q", string(b))
	}
	*k = v
	return nil
}

// Priority orders events and requests. Higher values are more urgent.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// MarshalText renders the priority by name.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a priority by name.
func (p *Priority) UnmarshalText(b []byte) error {
	for c := PriorityLow; c <= PriorityCritical; c++ {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", string(b))
}

// DetectedEvent is produced by the differencer from two consecutive snapshots.
type DetectedEvent struct {
	Kind       EventKind
	Priority   Priority
	Payload    Payload
	ObservedAt time.Time
	Subject    string
}

// Fields returns the payload as a flat map, never nil.
func (e DetectedEvent) Fields() map[string]any {
	if e.Payload == nil {
		return map[string]any{}
	}
	return e.Payload.Fields()
}
