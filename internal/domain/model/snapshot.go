// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Phase is the round phase reported by telemetry.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseWarmup
	PhaseFreezetime
	PhaseLive
	PhaseOver
	PhaseGameOver
	PhasePaused
)

var phaseNames = map[Phase]string{
	PhaseUnknown:    "unknown",
	PhaseWarmup:     "warmup",
	PhaseFreezetime: "freezetime",
	PhaseLive:       "live",
	PhaseOver:       "over",
	PhaseGameOver:   "gameover",
	PhasePaused:     "paused",
}

func (p Phase) String() string { return phaseNames[p] }

// ParsePhase maps a telemetry phase string. Unrecognized values map to PhaseUnknown.
func ParsePhase(s string) Phase {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range phaseNames {
		if name == s {
			return p
		}
	}
	return PhaseUnknown
}

// RoundEnded reports whether the phase closes a round.
func (p Phase) RoundEnded() bool { return p == PhaseOver || p == PhaseGameOver }

// BombState is the state of the bomb.
type BombState int

const (
	BombNone BombState = iota
	BombCarried
	BombDropped
	BombPlanting
	BombPlanted
	BombDefusing
	BombDefused
	BombExploded
)

var bombNames = map[BombState]string{
	BombNone:     "none",
	BombCarried:  "carried",
	BombDropped:  "dropped",
	BombPlanting: "planting",
	BombPlanted:  "planted",
	BombDefusing: "defusing",
	BombDefused:  "defused",
	BombExploded: "exploded",
}

func (b BombState) String() string { return bombNames[b] }

// ParseBombState maps a telemetry bomb string. Unrecognized values map to BombNone.
func ParseBombState(s string) BombState {
	s = strings.ToLower(strings.TrimSpace(s))
	for b, name := range bombNames {
		if name == s {
			return b
		}
	}
	return BombNone
}

// Side is the team a player is on.
type Side int

const (
	SideUnknown Side = iota
	SideCT
	SideT
)

func (s Side) String() string {
	switch s {
	case SideCT:
		return "CT"
	case SideT:
		return "T"
	default:
		return "unknown"
	}
}

// ParseSide accepts CT, T and the long forms.
func ParseSide(s string) Side {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CT", "COUNTER-TERRORIST", "COUNTER_TERRORIST":
		return SideCT
	case "T", "TERRORIST":
		return SideT
	default:
		return SideUnknown
	}
}

// MarshalText renders the side name.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a side name; unknown names decode to SideUnknown.
func (s *Side) UnmarshalText(b []byte) error {
	*s = ParseSide(string(b))
	return nil
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case SideCT:
		return SideT
	case SideT:
		return SideCT
	default:
		return SideUnknown
	}
}

// Field identifies a group of snapshot fields whose presence is tracked.
type Field uint32

const (
	FieldPhase Field = 1 << iota
	FieldRound
	FieldClock
	FieldBomb
	FieldPlayer
	FieldSide
	FieldHealth
	FieldArmor
	FieldMoney
	FieldRoundKills
	FieldMatchStats
	FieldEquipValue
	FieldWeapons
	FieldRoster
	FieldMap
	FieldScore
)

// FieldSet is a bitmask of decoded field groups.
type FieldSet uint32

// AllFields marks every field group present.
const AllFields = FieldSet(1<<16 - 1)

// Has reports whether every given field is present.
func (fs FieldSet) Has(fields ...Field) bool {
	for _, f := range fields {
		if fs&FieldSet(f) == 0 {
			return false
		}
	}
	return true
}

// With returns the set with f added.
func (fs FieldSet) With(f Field) FieldSet { return fs | FieldSet(f) }

// Vitals holds the coached player's state.
type Vitals struct {
	Health     int
	Armor      int
	Helmet     bool
	Money      int
	RoundKills int
	MatchKills int
	Deaths     int
	EquipValue int
	DefuseKit  bool
}

// RosterEntry is one player of the full roster.
type RosterEntry struct {
	ID     string
	Name   string
	Side   Side
	Health int
	Money  int
}

// Alive reports whether the player has health left.
func (r RosterEntry) Alive() bool { return r.Health > 0 }

// Snapshot is one immutable observation of the match.
type Snapshot struct {
	ObservedAt time.Time
	Present    FieldSet

	Phase         Phase
	Round         int
	ClockTime     int // seconds left in the current phase; -1 when unknown
	Bomb          BombState
	BombCountdown int
	BombSite      string

	PlayerID   string
	PlayerName string
	Side       Side
	Vitals     Vitals

	ActiveWeapon string
	Grenades     []string
	Roster       []RosterEntry

	Map          string
	ScoreCT      int
	ScoreT       int
	LossStreakCT int
	LossStreakT  int
	RawSize      int
}

// RoundNumber is the 1-based number of the round being played. Telemetry
// reports completed rounds in Round.
func (s *Snapshot) RoundNumber() int { return s.Round + 1 }

// Subject identifies the coached player, preferring the external id.
func (s *Snapshot) Subject() string {
	if s.PlayerID != "" {
		return s.PlayerID
	}
	return s.PlayerName
}

// TeamScore returns the player's team score and the opponent's.
func (s *Snapshot) TeamScore() (own, opp int) {
	if s.Side == SideT {
		return s.ScoreT, s.ScoreCT
	}
	return s.ScoreCT, s.ScoreT
}

// AliveCounts returns alive teammates (excluding the subject) and alive enemies.
func (s *Snapshot) AliveCounts() (teammates, enemies int) {
	subject := s.Subject()
	for _, r := range s.Roster {
		if !r.Alive() {
			continue
		}
		switch {
		case r.Side == s.Side && s.isSubject(r, subject):
		case r.Side == s.Side:
			teammates++
		case r.Side == s.Side.Opponent():
			enemies++
		}
	}
	return teammates, enemies
}

// LowHealthTeammates counts living teammates under the given health. The
// subject is not a teammate.
func (s *Snapshot) LowHealthTeammates(below int) int {
	subject := s.Subject()
	n := 0
	for _, r := range s.Roster {
		if r.Side == s.Side && r.Alive() && r.Health < below && !s.isSubject(r, subject) {
			n++
		}
	}
	return n
}

func (s *Snapshot) isSubject(r RosterEntry, subject string) bool {
	return r.ID == subject || (r.ID == "" && r.Name == s.PlayerName)
}
