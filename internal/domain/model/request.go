package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AnalysisRequest is an admitted event waiting for an inference call.
type AnalysisRequest struct {
	ID               string
	EventType        EventKind
	Priority         Priority
	Event            DetectedEvent
	Snapshot         Snapshot
	ClassifierReason string
	Confidence       int
	EnqueuedAt       time.Time
}

// CooldownEntry tracks the last admission of one event kind.
type CooldownEntry struct {
	EventType   EventKind     `json:"event_type"`
	LastFiredAt time.Time     `json:"last_fired_at"`
	Window      time.Duration `json:"window"`
}

// Remaining returns how much of the window is left at now.
func (c CooldownEntry) Remaining(now time.Time) time.Duration {
	if c.LastFiredAt.IsZero() {
		return 0
	}
	left := c.Window - now.Sub(c.LastFiredAt)
	if left < 0 {
		return 0
	}
	return left
}

// PlayerIdentity is the best guess of who is being coached.
type PlayerIdentity struct {
	Name             string    `json:"name"`
	ExternalID       string    `json:"external_id"`
	Confidence       int       `json:"confidence"`
	FirstSeenAt      time.Time `json:"first_seen_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	InteractionCount int       `json:"interaction_count"`
}

// Known reports whether an identity has been established.
func (p PlayerIdentity) Known() bool { return p.Name != "" || p.ExternalID != "" }

// Matches compares by external id when both sides have one, by name otherwise.
func (p PlayerIdentity) Matches(id, name string) bool {
	if p.ExternalID != "" && id != "" {
		return p.ExternalID == id
	}
	return p.Name != "" && p.Name == name
}

// Effectiveness is outcome feedback for a stored response.
type Effectiveness int

const (
	EffectivenessUnset Effectiveness = iota
	EffectivenessPositive
	EffectivenessNegative
	EffectivenessNeutral
)

func (e Effectiveness) String() string {
	switch e {
	case EffectivenessPositive:
		return "positive"
	case EffectivenessNegative:
		return "negative"
	case EffectivenessNeutral:
		return "neutral"
	default:
		return "unset"
	}
}

// ParseEffectiveness accepts positive, negative and neutral.
func ParseEffectiveness(s string) (Effectiveness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return EffectivenessPositive, nil
	case "negative":
		return EffectivenessNegative, nil
	case "neutral":
		return EffectivenessNeutral, nil
	default:
		return EffectivenessUnset, fmt.Errorf("unknown effectiveness %q", s)
	}
}

func (e Effectiveness) MarshalJSON() ([]byte, error) { return json.Marshal(e.String()) }

func (e *Effectiveness) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "unset" || s == "" {
		*e = EffectivenessUnset
		return nil
	}
	v, err := ParseEffectiveness(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Situation holds the quantizable features a memory record is keyed on.
type Situation struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Round    int    `json:"round"`
	Side     Side   `json:"side"`
	Health   int    `json:"health"`
	Money    int    `json:"money"`
	ScoreCT  int    `json:"score_ct"`
	ScoreT   int    `json:"score_t"`
}

// Score renders the round score as ct-t.
func (s Situation) Score() string { return fmt.Sprintf("%d-%d", s.ScoreCT, s.ScoreT) }

// MemoryRecord is one stored situation and the response given for it.
type MemoryRecord struct {
	ID                string        `json:"id"`
	Fingerprint       string        `json:"fingerprint"`
	SituationKey      string        `json:"situation_key"`
	Situation         Situation     `json:"situation"`
	CompressedContext string        `json:"compressed_context"`
	Response          string        `json:"response"`
	Effectiveness     Effectiveness `json:"effectiveness"`
	CreatedAt         time.Time     `json:"created_at"`
	OutcomeAt         time.Time     `json:"outcome_at,omitempty"`
}
