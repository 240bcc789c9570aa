// Package gsi decodes game state integration documents into snapshots.
//
// Decoding is tolerant: a leaf value of the wrong type is treated as absent,
// and a section with the wrong shape is skipped without affecting the others.
package gsi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type providerState struct {
	Name      optString `json:"name"`
	SteamID   optString `json:"steamid"`
	Timestamp optInt    `json:"timestamp"`
}

type authState struct {
	Token optString `json:"token"`
}

type teamState struct {
	Score        optInt `json:"score"`
	LossStreak   optInt `json:"consecutive_round_losses"`
	TimeoutsLeft optInt `json:"timeouts_remaining"`
}

type mapState struct {
	Name   optString       `json:"name"`
	Phase  optString       `json:"phase"`
	Round  optInt          `json:"round"`
	TeamCT json.RawMessage `json:"team_ct"`
	TeamT  json.RawMessage `json:"team_t"`
}

type roundState struct {
	Phase   optString `json:"phase"`
	Bomb    optString `json:"bomb"`
	WinTeam optString `json:"win_team"`
}

type playerVitals struct {
	Health     optInt  `json:"health"`
	Armor      optInt  `json:"armor"`
	Helmet     optBool `json:"helmet"`
	Money      optInt  `json:"money"`
	RoundKills optInt  `json:"round_kills"`
	EquipValue optInt  `json:"equip_value"`
	DefuseKit  optBool `json:"defusekit"`
}

type matchStats struct {
	Kills  optInt `json:"kills"`
	Deaths optInt `json:"deaths"`
}

type weaponState struct {
	Name  optString `json:"name"`
	Type  optString `json:"type"`
	State optString `json:"state"`
}

type playerState struct {
	SteamID    optString       `json:"steamid"`
	Name       optString       `json:"name"`
	Team       optString       `json:"team"`
	State      json.RawMessage `json:"state"`
	MatchStats json.RawMessage `json:"match_stats"`
	Weapons    json.RawMessage `json:"weapons"`
}

type rosterVitals struct {
	Health optInt `json:"health"`
	Money  optInt `json:"money"`
}

type rosterPlayer struct {
	Name  optString       `json:"name"`
	Team  optString       `json:"team"`
	State json.RawMessage `json:"state"`
}

type phaseCountdowns struct {
	Phase       optString `json:"phase"`
	PhaseEndsIn optInt    `json:"phase_ends_in"`
}

type bombState struct {
	State     optString `json:"state"`
	Countdown optInt    `json:"countdown"`
	Site      optString `json:"site"`
}

// decodeSection unmarshals one section, reporting false when it is absent or has the wrong shape.
func decodeSection(raw json.RawMessage, dst any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// optInt accepts JSON numbers and numeric strings. Anything else leaves it unset.
type optInt struct {
	V  int
	OK bool
}

func (o *optInt) UnmarshalJSON(b []byte) error {
	*o = optInt{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	o.V, o.OK = int(f), true
	return nil
}

// optString accepts strings and numbers (steam ids arrive as either).
type optString struct {
	V  string
	OK bool
}

func (o *optString) UnmarshalJSON(b []byte) error {
	*o = optString{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch {
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			o.V, o.OK = s, true
		}
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			o.V, o.OK = n.String(), true
		}
	}
	return nil
}

// optBool accepts booleans, "true"/"false" and 0/1.
type optBool struct {
	V  bool
	OK bool
}

func (o *optBool) UnmarshalJSON(b []byte) error {
	*o = optBool{}
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "true", "1":
		o.V, o.OK = true, true
	case "false", "0":
		o.V, o.OK = false, true
	}
	return nil
}
