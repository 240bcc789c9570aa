package gsi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/clutch/internal/domain/model"
)

// Result is a decoded document.
type Result struct {
	Snapshot  model.Snapshot
	AuthToken string
	// Skipped lists sections present in the document that could not be decoded.
	Skipped []string
}

// Decode turns a raw document into a snapshot observed at receivedAt. Only a body
// that is not a JSON object fails; everything else degrades to missing fields.
func Decode(body []byte, receivedAt time.Time) (Result, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &sections); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	res := Result{}
	snap := model.Snapshot{
		ObservedAt: receivedAt,
		ClockTime:  -1,
		RawSize:    len(body),
	}
	skip := func(name string) {
		if raw, ok := sections[name]; ok && len(bytes.TrimSpace(raw)) > 0 && string(bytes.TrimSpace(raw)) != "null" {
			res.Skipped = append(res.Skipped, name)
		}
	}

	var auth authState
	if decodeSection(sections["auth"], &auth) && auth.Token.OK {
		res.AuthToken = auth.Token.V
	}

	var mp mapState
	mapPhase := model.PhaseUnknown
	if decodeSection(sections["map"], &mp) {
		if mp.Name.OK {
			snap.Map = mp.Name.V
			snap.Present = snap.Present.With(model.FieldMap)
		}
		if mp.Round.OK {
			snap.Round = mp.Round.V
			snap.Present = snap.Present.With(model.FieldRound)
		}
		if mp.Phase.OK {
			mapPhase = model.ParsePhase(mp.Phase.V)
		}
		var ct, t teamState
		ctOK := decodeSection(mp.TeamCT, &ct) && ct.Score.OK
		tOK := decodeSection(mp.TeamT, &t) && t.Score.OK
		if ctOK && tOK {
			snap.ScoreCT, snap.ScoreT = ct.Score.V, t.Score.V
			snap.LossStreakCT, snap.LossStreakT = ct.LossStreak.V, t.LossStreak.V
			snap.Present = snap.Present.With(model.FieldScore)
		}
	} else {
		skip("map")
	}

	var rnd roundState
	if decodeSection(sections["round"], &rnd) {
		if rnd.Phase.OK {
			snap.Phase = model.ParsePhase(rnd.Phase.V)
			snap.Present = snap.Present.With(model.FieldPhase)
		}
		if rnd.Bomb.OK {
			snap.Bomb = model.ParseBombState(rnd.Bomb.V)
			snap.Present = snap.Present.With(model.FieldBomb)
		} else if rnd.Phase.OK {
			snap.Present = snap.Present.With(model.FieldBomb)
		}
	} else {
		skip("round")
	}
	switch mapPhase {
	case model.PhaseGameOver, model.PhaseWarmup:
		snap.Phase = mapPhase
		snap.Present = snap.Present.With(model.FieldPhase)
	}

	var bomb bombState
	if decodeSection(sections["bomb"], &bomb) {
		if bomb.State.OK {
			snap.Bomb = model.ParseBombState(bomb.State.V)
			snap.Present = snap.Present.With(model.FieldBomb)
		}
		if bomb.Countdown.OK {
			snap.BombCountdown = bomb.Countdown.V
		}
		if bomb.Site.OK {
			snap.BombSite = bomb.Site.V
		}
	} else {
		skip("bomb")
	}

	var pc phaseCountdowns
	if decodeSection(sections["phase_countdowns"], &pc) && pc.PhaseEndsIn.OK {
		snap.ClockTime = pc.PhaseEndsIn.V
		snap.Present = snap.Present.With(model.FieldClock)
	} else {
		skip("phase_countdowns")
	}

	var pl playerState
	if decodeSection(sections["player"], &pl) {
		decodePlayer(&snap, &pl)
	} else {
		skip("player")
	}

	var roster map[string]json.RawMessage
	if decodeSection(sections["allplayers"], &roster) {
		snap.Roster = decodeRoster(roster)
		snap.Present = snap.Present.With(model.FieldRoster)
	} else {
		skip("allplayers")
	}

	res.Snapshot = snap
	return res, nil
}

func decodePlayer(snap *model.Snapshot, pl *playerState) {
	if pl.Name.OK || pl.SteamID.OK {
		snap.PlayerName = pl.Name.V
		snap.PlayerID = pl.SteamID.V
		snap.Present = snap.Present.With(model.FieldPlayer)
	}
	if pl.Team.OK {
		if side := model.ParseSide(pl.Team.V); side != model.SideUnknown {
			snap.Side = side
			snap.Present = snap.Present.With(model.FieldSide)
		}
	}

	var st playerVitals
	if decodeSection(pl.State, &st) {
		v := &snap.Vitals
		if st.Health.OK {
			v.Health = st.Health.V
			snap.Present = snap.Present.With(model.FieldHealth)
		}
		if st.Armor.OK {
			v.Armor = st.Armor.V
			snap.Present = snap.Present.With(model.FieldArmor)
		}
		v.Helmet = st.Helmet.V
		if st.Money.OK {
			v.Money = st.Money.V
			snap.Present = snap.Present.With(model.FieldMoney)
		}
		if st.RoundKills.OK {
			v.RoundKills = st.RoundKills.V
			snap.Present = snap.Present.With(model.FieldRoundKills)
		}
		if st.EquipValue.OK {
			v.EquipValue = st.EquipValue.V
			snap.Present = snap.Present.With(model.FieldEquipValue)
		}
		v.DefuseKit = st.DefuseKit.V
	}

	var ms matchStats
	if decodeSection(pl.MatchStats, &ms) && ms.Kills.OK && ms.Deaths.OK {
		snap.Vitals.MatchKills = ms.Kills.V
		snap.Vitals.Deaths = ms.Deaths.V
		snap.Present = snap.Present.With(model.FieldMatchStats)
	}

	var weapons map[string]json.RawMessage
	if decodeSection(pl.Weapons, &weapons) {
		slots := make([]string, 0, len(weapons))
		for slot := range weapons {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			var w weaponState
			if !decodeSection(weapons[slot], &w) || !w.Name.OK {
				continue
			}
			if strings.EqualFold(w.State.V, "active") {
				snap.ActiveWeapon = w.Name.V
			}
			if strings.EqualFold(w.Type.V, "grenade") {
				snap.Grenades = append(snap.Grenades, w.Name.V)
			}
		}
		snap.Present = snap.Present.With(model.FieldWeapons)
	}
}

func decodeRoster(raw map[string]json.RawMessage) []model.RosterEntry {
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.RosterEntry, 0, len(ids))
	for _, id := range ids {
		var p rosterPlayer
		if !decodeSection(raw[id], &p) {
			continue
		}
		var st rosterVitals
		if !decodeSection(p.State, &st) || !st.Health.OK {
			continue
		}
		out = append(out, model.RosterEntry{
			ID:     id,
			Name:   p.Name.V,
			Side:   model.ParseSide(p.Team.V),
			Health: st.Health.V,
			Money:  st.Money.V,
		})
	}
	return out
}
