package differ

import (
	"time"

	"github.com/okian/clutch/internal/domain/model"
)

func (d *Differ) detectRoundStart(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldPhase) {
		return nil
	}
	if prev.Phase == model.PhaseFreezetime || cur.Phase != model.PhaseFreezetime || d.roundStart.closed(cur) {
		return nil
	}
	d.roundStart.fire(cur)
	d.killStreak = 0
	d.lastKillAt = time.Time{}

	own, opp := cur.TeamScore()
	p := model.RoundStartPayload{
		Round:      cur.RoundNumber(),
		Side:       cur.Side,
		Money:      cur.Vitals.Money,
		ScoreOwn:   own,
		ScoreOpp:   opp,
		MatchPoint: d.matchPoint(cur),
	}

	kind, prio := model.KindRoundStart, model.PriorityMedium
	hasMoney := cur.Present.Has(model.FieldMoney)
	switch {
	case cur.Present.Has(model.FieldRound) && (cur.Round == 0 || cur.Round == d.th.HalfRounds):
		kind, prio = model.KindRoundStartPistol, model.PriorityHigh
	case hasMoney && cur.Vitals.Money < d.th.LowMoney:
		kind = model.KindRoundStartEco
	case hasMoney && cur.Vitals.Money < d.th.ForceBuyMoney:
		kind = model.KindRoundStartForce
	case p.MatchPoint:
		kind, prio = model.KindRoundStartDecisive, model.PriorityHigh
	}
	return []model.DetectedEvent{event(cur, kind, prio, p)}
}

// detectKills is the only detector allowed two events per tick: a kill
// milestone and a rapid-kill streak.
func (d *Differ) detectKills(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldRoundKills) {
		return nil
	}
	pk, ck := prev.Vitals.RoundKills, cur.Vitals.RoundKills
	if ck <= pk {
		return nil
	}

	d.killStreak += ck - pk
	gap := cur.ObservedAt.Sub(d.lastKillAt)
	rapid := !d.lastKillAt.IsZero() && gap < d.th.RapidKillWindow && d.killStreak > 1
	d.lastKillAt = cur.ObservedAt

	var out []model.DetectedEvent
	mk := model.MultiKillPayload{Kills: ck, Weapon: cur.ActiveWeapon, Health: cur.Vitals.Health}
	switch {
	case ck >= 5 && pk < 5:
		out = append(out, event(cur, model.KindAce, model.PriorityCritical, mk))
	case ck == 4:
		out = append(out, event(cur, model.KindQuadKill, model.PriorityCritical, mk))
	case ck == 3:
		out = append(out, event(cur, model.KindTripleKill, model.PriorityCritical, mk))
	case ck == 2:
		out = append(out, event(cur, model.KindDoubleKill, model.PriorityMedium, mk))
	}
	if rapid {
		out = append(out, event(cur, model.KindRapidKills, model.PriorityHigh,
			model.RapidKillPayload{Streak: d.killStreak, Gap: gap}))
	}
	return out
}

func (d *Differ) detectHealth(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldHealth) {
		return nil
	}
	ph, ch := prev.Vitals.Health, cur.Vitals.Health
	if ch <= 0 {
		return nil
	}
	// A drop through both thresholds reports the critical one only.
	critical := ph >= d.th.CriticalHealth && ch < d.th.CriticalHealth
	low := ph >= d.th.LowHealth && ch < d.th.LowHealth
	if !critical && !low {
		return nil
	}
	if !d.lastHealthWarn.IsZero() && cur.ObservedAt.Sub(d.lastHealthWarn) < d.th.HealthWarnInterval {
		return nil
	}
	d.lastHealthWarn = cur.ObservedAt

	p := model.HealthPayload{Health: ch, Previous: ph, Armor: cur.Vitals.Armor}
	if critical {
		return []model.DetectedEvent{event(cur, model.KindCriticalHealth, model.PriorityHigh, p)}
	}
	return []model.DetectedEvent{event(cur, model.KindLowHealth, model.PriorityMedium, p)}
}

func (d *Differ) detectEconomy(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldMoney) {
		return nil
	}
	if !d.lastEconomyWarn.IsZero() && cur.ObservedAt.Sub(d.lastEconomyWarn) < d.th.EconomyWarnInterval {
		return nil
	}
	pm, cm := prev.Vitals.Money, cur.Vitals.Money
	delta := cm - pm
	if delta < 0 {
		delta = -delta
	}

	switch {
	case delta > d.th.EconomyShift:
		d.lastEconomyWarn = cur.ObservedAt
		return []model.DetectedEvent{event(cur, model.KindEconomyShift, model.PriorityMedium, model.EconomyShiftPayload{
			Previous:   pm,
			Current:    cm,
			CanFullBuy: cm >= d.th.FullBuyMoney,
		})}
	case cm < d.th.LowMoney && pm >= d.th.LowMoney:
		d.lastEconomyWarn = cur.ObservedAt
		return []model.DetectedEvent{event(cur, model.KindLowEconomy, model.PriorityMedium, model.LowEconomyPayload{
			Money:       cm,
			CanBuyArmor: cm >= d.th.ArmorMoney,
			CanBuyRifle: cm >= d.th.RifleMoney,
		})}
	}
	return nil
}

func (d *Differ) detectBomb(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldBomb) || prev.Bomb == cur.Bomb {
		return nil
	}

	remaining := cur.BombCountdown
	if remaining == 0 && cur.Present.Has(model.FieldClock) {
		remaining = cur.ClockTime
	}
	p := model.BombPayload{
		Side:          cur.Side,
		TimeRemaining: remaining,
		Site:          cur.BombSite,
		DefuseKit:     cur.Vitals.DefuseKit,
	}

	switch cur.Bomb {
	case model.BombPlanted:
		if d.bombPlanted.closed(cur) {
			return nil
		}
		d.bombPlanted.fire(cur)
		return []model.DetectedEvent{event(cur, model.KindBombPlanted, model.PriorityCritical, p)}
	case model.BombDefusing:
		p.DefuseSeconds = d.th.DefuseSecondsNoKit
		if cur.Vitals.DefuseKit {
			p.DefuseSeconds = d.th.DefuseSecondsKit
		}
		return []model.DetectedEvent{event(cur, model.KindBombDefusing, model.PriorityCritical, p)}
	}
	return nil
}

func (d *Differ) detectClutch(_, cur *model.Snapshot) []model.DetectedEvent {
	if !cur.Present.Has(model.FieldRoster, model.FieldSide) || d.clutch.closed(cur) {
		return nil
	}
	if cur.Present.Has(model.FieldPhase) && cur.Phase != model.PhaseLive {
		return nil
	}
	if cur.Present.Has(model.FieldHealth) && cur.Vitals.Health <= 0 {
		return nil
	}
	mates, enemies := cur.AliveCounts()
	if mates != 0 || enemies < d.th.ClutchMinEnemies {
		return nil
	}
	d.clutch.fire(cur)
	return []model.DetectedEvent{event(cur, model.KindClutch, model.PriorityCritical, model.ClutchPayload{
		Enemies:     enemies,
		Health:      cur.Vitals.Health,
		Armor:       cur.Vitals.Armor,
		Money:       cur.Vitals.Money,
		BombPlanted: cur.Bomb == model.BombPlanted,
		DefuseKit:   cur.Vitals.DefuseKit,
	})}
}

func (d *Differ) detectSideSwitch(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldSide, model.FieldPlayer) || prev.Subject() != cur.Subject() {
		return nil
	}
	if prev.Side == cur.Side || prev.Side == model.SideUnknown || cur.Side == model.SideUnknown {
		return nil
	}
	return []model.DetectedEvent{event(cur, model.KindSideSwitch, model.PriorityHigh,
		model.SideSwitchPayload{From: prev.Side, To: cur.Side})}
}

func (d *Differ) detectOvertime(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldScore) {
		return nil
	}
	regulation := 2 * d.th.HalfRounds
	if prev.ScoreCT+prev.ScoreT >= regulation || cur.ScoreCT+cur.ScoreT != regulation || cur.ScoreCT != cur.ScoreT {
		return nil
	}
	return []model.DetectedEvent{event(cur, model.KindOvertimeStart, model.PriorityCritical,
		model.OvertimePayload{ScoreCT: cur.ScoreCT, ScoreT: cur.ScoreT})}
}

// detectRoundEnd runs last: it opens every latch for the next round.
func (d *Differ) detectRoundEnd(prev, cur *model.Snapshot) []model.DetectedEvent {
	if !both(prev, cur, model.FieldPhase) || prev.Phase.RoundEnded() || !cur.Phase.RoundEnded() {
		return nil
	}

	winner := model.SideUnknown
	if both(prev, cur, model.FieldScore) {
		switch {
		case cur.ScoreCT > prev.ScoreCT:
			winner = model.SideCT
		case cur.ScoreT > prev.ScoreT:
			winner = model.SideT
		}
	}
	p := model.RoundEndPayload{
		Round:  cur.RoundNumber(),
		Winner: winner,
		Won:    winner != model.SideUnknown && winner == cur.Side,
		Kills:  cur.Vitals.RoundKills,
		Health: cur.Vitals.Health,
	}

	d.roundStart = latch{}
	d.bombPlanted = latch{}
	d.clutch = latch{}
	d.killStreak = 0
	d.lastKillAt = time.Time{}
	return []model.DetectedEvent{event(cur, model.KindRoundEnd, model.PriorityLow, p)}
}
