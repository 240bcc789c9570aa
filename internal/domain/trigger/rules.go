package trigger

import "github.com/okian/clutch/internal/domain/model"

// Tier is the pre-classified importance of an event kind.
type Tier int

const (
	TierMinor Tier = iota
	TierContextual
	TierImportant
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierContextual:
		return "contextual"
	case TierImportant:
		return "important"
	case TierCritical:
		return "critical"
	default:
		return "minor"
	}
}

// MarshalText renders the tier name.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// MatchPhase is where the match stands by total score.
type MatchPhase string

const (
	PhaseEarly    MatchPhase = "early"
	PhaseMid      MatchPhase = "mid"
	PhaseLate     MatchPhase = "late"
	PhaseDecisive MatchPhase = "decisive"
	PhaseOvertime MatchPhase = "overtime"
)

// EconomyState buckets the coached player's money.
type EconomyState string

const (
	EconomyBroken EconomyState = "broken"
	EconomyEco    EconomyState = "eco"
	EconomyForce  EconomyState = "force"
	EconomyNormal EconomyState = "normal"
	EconomyFull   EconomyState = "full"
)

const (
	baseImportant  = 70
	baseContextual = 40
	maxTierScore   = 100

	lowBombSeconds    = 30
	lowDefuseSeconds  = 10
	economyRoundMoney = 2000
	closeGameMargin   = 2
	teamFightLow      = 2
	fewAlive          = 2
	teamLowHealth     = 30
	momentumSwing     = 60
)

// evalContext is the immutable input of every scoring rule.
type evalContext struct {
	ev         model.DetectedEvent
	snap       model.Snapshot
	round      RoundContext
	halfRounds int

	phase    MatchPhase
	economy  EconomyState
	momentum int
}

func newEvalContext(ev model.DetectedEvent, snap model.Snapshot, rc RoundContext, halfRounds int) evalContext {
	return evalContext{
		ev:         ev,
		snap:       snap,
		round:      rc,
		halfRounds: halfRounds,
		phase:      matchPhase(&snap, halfRounds),
		economy:    economyState(&snap),
		momentum:   rc.Momentum(),
	}
}

func (c evalContext) kind() model.EventKind { return c.ev.Kind }

func (c evalContext) money() int {
	if c.snap.Present.Has(model.FieldMoney) {
		return c.snap.Vitals.Money
	}
	return 0
}

func (c evalContext) matchPoint() bool {
	return c.snap.ScoreCT >= c.halfRounds || c.snap.ScoreT >= c.halfRounds
}

func (c evalContext) closeGame() bool {
	d := c.snap.ScoreCT - c.snap.ScoreT
	return d <= closeGameMargin && d >= -closeGameMargin
}

func (c evalContext) pistol() bool {
	if c.ev.Kind == model.KindRoundStartPistol {
		return true
	}
	return c.snap.Present.Has(model.FieldRound) && (c.snap.Round == 0 || c.snap.Round == c.halfRounds)
}

// secondsLeft is the bomb or round clock, -1 when unknown.
func (c evalContext) secondsLeft() int {
	if p, ok := c.ev.Payload.(model.BombPayload); ok && p.TimeRemaining > 0 {
		return p.TimeRemaining
	}
	if c.snap.Present.Has(model.FieldClock) && c.snap.ClockTime >= 0 {
		return c.snap.ClockTime
	}
	return -1
}

func (c evalContext) lowTime(limit int) bool {
	s := c.secondsLeft()
	return s >= 0 && s <= limit
}

func (c evalContext) aliveTeammates() int {
	mates, _ := c.snap.AliveCounts()
	return mates
}

func (c evalContext) aliveTotal() int {
	n := 0
	for _, r := range c.snap.Roster {
		if r.Alive() {
			n++
		}
	}
	return n
}

func (c evalContext) communicationNeed() bool {
	if c.snap.Present.Has(model.FieldBomb) && c.snap.Bomb == model.BombPlanted {
		return true
	}
	return c.snap.Present.Has(model.FieldRoster) && c.aliveTotal() <= fewAlive
}

func matchPhase(s *model.Snapshot, half int) MatchPhase {
	total := s.ScoreCT + s.ScoreT
	switch {
	case total <= 3:
		return PhaseEarly
	case total <= 12:
		return PhaseMid
	case total >= 2*half:
		return PhaseOvertime
	case s.ScoreCT >= half || s.ScoreT >= half:
		return PhaseDecisive
	default:
		return PhaseLate
	}
}

func economyState(s *model.Snapshot) EconomyState {
	m := 0
	if s.Present.Has(model.FieldMoney) {
		m = s.Vitals.Money
	}
	switch {
	case m < 1000:
		return EconomyBroken
	case m < 2500:
		return EconomyEco
	case m < 4000:
		return EconomyForce
	case m < 4500:
		return EconomyNormal
	default:
		return EconomyFull
	}
}

func tierOf(c evalContext) Tier {
	switch c.kind() {
	case model.KindAce, model.KindQuadKill, model.KindTripleKill, model.KindClutch, model.KindOvertimeStart:
		return TierCritical
	case model.KindBombDefusing:
		if c.lowTime(lowDefuseSeconds) {
			return TierCritical
		}
		return TierContextual
	case model.KindRoundStartPistol, model.KindRoundStartEco, model.KindRoundStartForce,
		model.KindRoundStartDecisive, model.KindLowEconomy, model.KindSideSwitch:
		return TierImportant
	case model.KindDoubleKill, model.KindRapidKills, model.KindBombPlanted, model.KindLowHealth,
		model.KindCriticalHealth, model.KindEconomyShift, model.KindRoundEnd:
		return TierContextual
	default:
		return TierMinor
	}
}

// rule adds points when its condition holds.
type rule struct {
	name   string
	points int
	when   func(evalContext) bool
}

func isKind(kinds ...model.EventKind) func(evalContext) bool {
	return func(c evalContext) bool {
		for _, k := range kinds {
			if c.kind() == k {
				return true
			}
		}
		return false
	}
}

func all(conds ...func(evalContext) bool) func(evalContext) bool {
	return func(c evalContext) bool {
		for _, f := range conds {
			if !f(c) {
				return false
			}
		}
		return true
	}
}

var importantRules = []rule{
	{"economy_round", 15, func(c evalContext) bool { return c.money() < economyRoundMoney }},
	{"match_point", 15, evalContext.matchPoint},
	{"close_game", 10, evalContext.closeGame},
	{"pistol_round", 10, evalContext.pistol},
	{"overtime", 15, func(c evalContext) bool { return c.phase == PhaseOvertime }},
}

var contextualRules = []rule{
	{"outnumbered_double", 30, all(isKind(model.KindDoubleKill), func(c evalContext) bool {
		return c.snap.Present.Has(model.FieldRoster) && c.aliveTeammates() <= 1
	})},
	{"late_plant", 25, all(isKind(model.KindBombPlanted), func(c evalContext) bool { return c.lowTime(lowBombSeconds) })},
	{"team_low", 20, all(isKind(model.KindLowHealth, model.KindCriticalHealth), func(c evalContext) bool {
		return c.snap.LowHealthTeammates(teamLowHealth) >= teamFightLow
	})},
	{"broke_swing", 15, all(isKind(model.KindEconomyShift), func(c evalContext) bool {
		return c.economy == EconomyBroken || c.economy == EconomyEco
	})},
}

var strategicRules = []rule{
	{"decisive_phase", 25, func(c evalContext) bool { return c.phase == PhaseDecisive }},
	{"broken_economy", 20, func(c evalContext) bool { return c.economy == EconomyBroken }},
	{"momentum_swing", 15, func(c evalContext) bool { return c.momentum > momentumSwing || c.momentum < -momentumSwing }},
	{"struggling", 20, func(c evalContext) bool { return c.round.Struggling() }},
	{"communication", 10, evalContext.communicationNeed},
}

// alwaysStrategic are moments admitted regardless of score.
var alwaysStrategic = []func(evalContext) bool{
	func(c evalContext) bool {
		return c.kind().IsRoundStart() && (c.economy == EconomyBroken || c.phase == PhaseDecisive)
	},
	isKind(model.KindSideSwitch),
}

func sum(c evalContext, rules []rule) (int, []string) {
	total := 0
	var hits []string
	for _, r := range rules {
		if r.when(c) {
			total += r.points
			hits = append(hits, r.name)
		}
	}
	return total, hits
}

// tierScore is the base score plus tier rules, capped.
func tierScore(c evalContext, t Tier) (int, []string) {
	switch t {
	case TierImportant:
		s, hits := sum(c, importantRules)
		return min(baseImportant+s, maxTierScore), hits
	case TierContextual:
		s, hits := sum(c, contextualRules)
		return min(baseContextual+s, maxTierScore), hits
	case TierCritical:
		return maxTierScore, nil
	default:
		return 0, nil
	}
}

func isAlwaysStrategic(c evalContext) bool {
	for _, f := range alwaysStrategic {
		if f(c) {
			return true
		}
	}
	return false
}
