package replay

import (
	"math/rand/v2"
	"strconv"
)

// Document is the subset of a game state document the coach reads.
type Document struct {
	Provider        *providerDoc         `json:"provider,omitempty"`
	Auth            *authDoc             `json:"auth,omitempty"`
	Map             *mapDoc              `json:"map,omitempty"`
	Round           *roundDoc            `json:"round,omitempty"`
	Bomb            *bombDoc             `json:"bomb,omitempty"`
	PhaseCountdowns *countdownDoc        `json:"phase_countdowns,omitempty"`
	Player          *playerDoc           `json:"player,omitempty"`
	AllPlayers      map[string]rosterDoc `json:"allplayers,omitempty"`
}

type providerDoc struct {
	Name    string `json:"name"`
	SteamID string `json:"steamid"`
}

type authDoc struct {
	Token string `json:"token"`
}

type teamDoc struct {
	Score      int `json:"score"`
	LossStreak int `json:"consecutive_round_losses"`
}

type mapDoc struct {
	Name   string  `json:"name"`
	Phase  string  `json:"phase"`
	Round  int     `json:"round"`
	TeamCT teamDoc `json:"team_ct"`
	TeamT  teamDoc `json:"team_t"`
}

type roundDoc struct {
	Phase string `json:"phase"`
	Bomb  string `json:"bomb,omitempty"`
}

type bombDoc struct {
	State     string `json:"state"`
	Countdown int    `json:"countdown,omitempty"`
	Site      string `json:"site,omitempty"`
}

type countdownDoc struct {
	Phase       string `json:"phase"`
	PhaseEndsIn int    `json:"phase_ends_in"`
}

type vitalsDoc struct {
	Health     int  `json:"health"`
	Armor      int  `json:"armor"`
	Helmet     bool `json:"helmet"`
	Money      int  `json:"money"`
	RoundKills int  `json:"round_kills"`
	EquipValue int  `json:"equip_value"`
	DefuseKit  bool `json:"defusekit"`
}

type statsDoc struct {
	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`
}

type playerDoc struct {
	SteamID    string    `json:"steamid"`
	Name       string    `json:"name"`
	Team       string    `json:"team"`
	State      vitalsDoc `json:"state"`
	MatchStats statsDoc  `json:"match_stats"`
}

type rosterDoc struct {
	Name  string `json:"name"`
	Team  string `json:"team"`
	State struct {
		Health int `json:"health"`
		Money  int `json:"money"`
	} `json:"state"`
}

const (
	playerSteamID = "76561198000000001"
	playerName    = "coachee"
	mapName       = "de_mirage"
	startMoney    = 800
	killReward    = 300
	winBonus      = 3250
	lossBonus     = 1900
	maxMoney      = 16000
)

// match carries the running state of a scripted game.
type match struct {
	rng    *rand.Rand
	token  string
	round  int
	ct, t  int
	ctLoss int
	tLoss  int
	money  int
	kills  int
	deaths int
}

// Script renders a deterministic match of the given number of rounds. The
// coached player is on CT. Every round walks freezetime, live, kills, a hit,
// the plant and the round end; every other round carries a triple kill.
func Script(rounds int, seed uint64, token string) []Frame {
	m := &match{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		token: token,
		money: startMoney,
	}
	frames := make([]Frame, 0, rounds*6)
	for r := 0; r < rounds; r++ {
		frames = append(frames, m.playRound()...)
	}
	return frames
}

func (m *match) playRound() []Frame {
	var out []Frame
	round := m.round + 1
	add := func(label string, doc Document) {
		out = append(out, Frame{Round: round, Label: label, Doc: doc})
	}

	equip := min(m.money, 4700)
	add("freezetime", m.doc("live", "freezetime", "", vitalsDoc{
		Health: 100, Armor: 100, Helmet: equip >= 1000, Money: m.money, EquipValue: equip,
	}, 15))

	m.money -= equip
	vit := vitalsDoc{Health: 100, Armor: 100, Helmet: equip >= 1000, Money: m.money, EquipValue: equip, DefuseKit: equip >= 3700}
	add("live", m.doc("live", "live", "", vit, 110))

	roundKills := 1 + m.rng.IntN(2)
	if m.round%2 == 0 {
		roundKills = 3
	}
	vit.RoundKills = roundKills
	vit.Money += roundKills * killReward
	m.kills += roundKills
	add("kills", m.doc("live", "live", "", vit, 70))

	vit.Health = 8 + m.rng.IntN(20)
	vit.Armor = 40
	add("hit", m.doc("live", "live", "", vit, 55))

	planted := m.doc("live", "live", "planted", vit, 40)
	planted.Bomb = &bombDoc{State: "planted", Countdown: 40, Site: []string{"A", "B"}[m.rng.IntN(2)]}
	add("planted", planted)

	won := m.rng.IntN(3) > 0
	if won {
		m.ct++
		m.ctLoss, m.tLoss = 0, m.tLoss+1
		vit.Money = min(vit.Money+winBonus, maxMoney)
	} else {
		m.t++
		m.ctLoss, m.tLoss = m.ctLoss+1, 0
		m.deaths++
		vit.Health = 0
		vit.Money = min(vit.Money+lossBonus, maxMoney)
	}
	m.round++
	over := m.doc("live", "over", "exploded", vit, 7)
	if won {
		over.Round.Bomb = "defused"
	}
	add("over", over)

	m.money = vit.Money
	return out
}

func (m *match) doc(mapPhase, roundPhase, bomb string, vit vitalsDoc, endsIn int) Document {
	doc := Document{
		Provider: &providerDoc{Name: "Counter-Strike: Global Offensive", SteamID: playerSteamID},
		Map: &mapDoc{
			Name:   mapName,
			Phase:  mapPhase,
			Round:  m.round,
			TeamCT: teamDoc{Score: m.ct, LossStreak: m.ctLoss},
			TeamT:  teamDoc{Score: m.t, LossStreak: m.tLoss},
		},
		Round:           &roundDoc{Phase: roundPhase, Bomb: bomb},
		PhaseCountdowns: &countdownDoc{Phase: roundPhase, PhaseEndsIn: endsIn},
		Player: &playerDoc{
			SteamID:    playerSteamID,
			Name:       playerName,
			Team:       "CT",
			State:      vit,
			MatchStats: statsDoc{Kills: m.kills, Deaths: m.deaths},
		},
		AllPlayers: m.roster(vit),
	}
	if m.token != "" {
		doc.Auth = &authDoc{Token: m.token}
	}
	return doc
}

func (m *match) roster(vit vitalsDoc) map[string]rosterDoc {
	out := make(map[string]rosterDoc, 10)
	add := func(id, name, team string, health, money int) {
		var p rosterDoc
		p.Name, p.Team = name, team
		p.State.Health, p.State.Money = health, money
		out[id] = p
	}
	add(playerSteamID, playerName, "CT", vit.Health, vit.Money)
	for i := 2; i <= 5; i++ {
		add("7656119800000000"+strconv.Itoa(i), "mate"+strconv.Itoa(i), "CT", 100, m.money)
	}
	for i := 6; i <= 9; i++ {
		add("7656119800000000"+strconv.Itoa(i), "enemy"+strconv.Itoa(i), "T", 100, m.money)
	}
	add("76561198000000010", "enemy10", "T", 100, m.money)
	return out
}
