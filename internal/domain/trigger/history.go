package trigger

import (
	"sync"

	"github.com/okian/clutch/internal/domain/model"
)

// RoundResult is one finished round from the coached player's view.
type RoundResult struct {
	Round int  `json:"round"`
	Won   bool `json:"won"`
	Kills int  `json:"kills"`
}

// RoundContext summarizes recent form for the scoring rules.
type RoundContext struct {
	// Recent holds the newest round first.
	Recent  []RoundResult `json:"recent"`
	KD      float64       `json:"kd"`
	WinRate float64       `json:"win_rate"`
	Rounds  int           `json:"rounds"`
}

// NeutralContext is used before any round has been observed.
func NeutralContext() RoundContext {
	return RoundContext{KD: 1, WinRate: 50}
}

// Momentum is a weighted streak in [-100, 100]; newer rounds weigh more.
func (rc RoundContext) Momentum() int {
	n := len(rc.Recent)
	if n == 0 {
		return 0
	}
	m := 0.0
	for i, r := range rc.Recent {
		w := float64(n-i) / float64(n)
		if r.Won {
			m += w * 20
		} else {
			m -= w * 20
		}
	}
	return clamp(int(m), -100, 100)
}

// Struggling reports a poor K/D combined with a losing record.
func (rc RoundContext) Struggling() bool {
	return rc.KD < 0.7 && rc.WinRate < 40
}

// History accumulates round results from round_end events.
type History struct {
	mu      sync.RWMutex
	recent  int
	results []RoundResult
	won     int
	kills   int
	deaths  int
	haveKD  bool
}

// NewHistory keeps the last recent rounds for momentum.
func NewHistory(recent int) *History {
	if recent <= 0 {
		recent = DefaultConfig().RecentRounds
	}
	return &History{recent: recent}
}

// Observe records a round_end event; other kinds are ignored.
func (h *History) Observe(ev model.DetectedEvent, snap model.Snapshot) {
	p, ok := ev.Payload.(model.RoundEndPayload)
	if ev.Kind != model.KindRoundEnd || !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append([]RoundResult{{Round: p.Round, Won: p.Won, Kills: p.Kills}}, h.results...)
	if p.Won {
		h.won++
	}
	if len(h.results) > h.recent {
		dropped := h.results[h.recent:]
		for _, r := range dropped {
			if r.Won {
				h.won--
			}
		}
		h.results = h.results[:h.recent]
	}
	if snap.Present.Has(model.FieldMatchStats) {
		h.kills, h.deaths, h.haveKD = snap.Vitals.MatchKills, snap.Vitals.Deaths, true
	}
}

// Context returns the current round context.
func (h *History) Context() RoundContext {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rc := NeutralContext()
	rc.Rounds = len(h.results)
	if rc.Rounds > 0 {
		rc.Recent = append([]RoundResult(nil), h.results...)
		rc.WinRate = float64(h.won) * 100 / float64(rc.Rounds)
	}
	if h.haveKD {
		switch {
		case h.deaths > 0:
			rc.KD = float64(h.kills) / float64(h.deaths)
		case h.kills > 0:
			rc.KD = float64(h.kills)
		}
	}
	return rc
}

// Reset clears all observed rounds.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = nil
	h.won, h.kills, h.deaths, h.haveKD = 0, 0, 0, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
