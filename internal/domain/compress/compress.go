// Package compress reduces a snapshot to the compact context sent with an
// inference call.
package compress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
)

const bytesPerToken = 4

// Field is one rendered key of a payload.
type Field struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Required bool   `json:"required"`
}

// Payload is the compact context for one event. Ratio is the fraction of the
// raw document size saved.
type Payload struct {
	Kind     model.EventKind `json:"kind"`
	Profile  string          `json:"profile"`
	Fields   []Field         `json:"fields"`
	Dropped  []string        `json:"dropped,omitempty"`
	RawBytes int             `json:"raw_bytes"`
	Bytes    int             `json:"bytes"`
	Ratio    float64         `json:"ratio"`
}

// String renders the payload one "key:value" per line.
func (p Payload) String() string {
	var b strings.Builder
	for i, f := range p.Fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Key)
		b.WriteByte(':')
		b.WriteString(f.Value)
	}
	return b.String()
}

// Get returns the value rendered for key.
func (p Payload) Get(key string) (string, bool) {
	for _, f := range p.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Stats aggregates compression results.
type Stats struct {
	Count      uint64  `json:"count"`
	AvgRatio   float64 `json:"avg_ratio"`
	LastRatio  float64 `json:"last_ratio"`
	BytesSaved int64   `json:"bytes_saved"`
}

// Compressor renders snapshots through per-kind profiles. It keeps the last
// compressed snapshot to render deltas.
type Compressor struct {
	mu        sync.Mutex
	maxTokens int
	logger    logger.Logger
	prev      *model.Snapshot
	stats     Stats
}

// New creates a Compressor.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		maxTokens: defaultMaxTokens,
		logger:    logger.Get().Named("compress"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress renders snap for kind. Required profile keys are always present;
// optional keys are dropped from the end while the output exceeds the token
// budget.
func (c *Compressor) Compress(snap model.Snapshot, kind model.EventKind) Payload {
	c.mu.Lock()
	defer c.mu.Unlock()

	prof := profileFor(kind)
	src := source{cur: &snap, prev: c.prev}

	p := Payload{Kind: kind, Profile: prof.name}
	for _, k := range prof.required {
		p.Fields = append(p.Fields, Field{Key: k, Value: src.render(k), Required: true})
	}
	for _, k := range prof.optional {
		if v := src.render(k); v != "" {
			p.Fields = append(p.Fields, Field{Key: k, Value: v})
		}
	}
	c.fit(&p)

	p.RawBytes = rawSize(&snap)
	p.Bytes = len(p.String())
	if p.RawBytes > 0 {
		p.Ratio = float64(p.RawBytes-p.Bytes) / float64(p.RawBytes)
	}
	c.prev = &snap
	c.record(p)
	return p
}

// Reset forgets the delta baseline and the stats.
func (c *Compressor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prev = nil
	c.stats = Stats{}
}

// Stats returns the aggregate counters.
func (c *Compressor) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Compressor) fit(p *Payload) {
	if c.maxTokens <= 0 {
		return
	}
	budget := c.maxTokens * bytesPerToken
	for len(p.String()) > budget {
		i := lastOptional(p.Fields)
		if i < 0 {
			return
		}
		p.Dropped = append(p.Dropped, p.Fields[i].Key)
		p.Fields = append(p.Fields[:i], p.Fields[i+1:]...)
	}
}

func lastOptional(fields []Field) int {
	for i := len(fields) - 1; i >= 0; i-- {
		if !fields[i].Required {
			return i
		}
	}
	return -1
}

func (c *Compressor) record(p Payload) {
	c.stats.Count++
	c.stats.LastRatio = p.Ratio
	c.stats.AvgRatio += (p.Ratio - c.stats.AvgRatio) / float64(c.stats.Count)
	c.stats.BytesSaved += int64(p.RawBytes - p.Bytes)
	metrics.RecordCompression(p.Ratio, p.Bytes)
	if len(p.Dropped) > 0 {
		c.logger.Debug(context.Background(), "optional context dropped",
			logger.String("profile", p.Profile),
			logger.Any("dropped", p.Dropped),
		)
	}
}

// rawSize falls back to the JSON size of the snapshot when the source
// document size is unknown.
func rawSize(s *model.Snapshot) int {
	if s.RawSize > 0 {
		return s.RawSize
	}
	b, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	return len(b)
}

// source renders profile keys from the current and previous snapshot.
type source struct {
	cur  *model.Snapshot
	prev *model.Snapshot
}

func (s source) has(fields ...model.Field) bool { return s.cur.Present.Has(fields...) }

func (s source) render(key string) string {
	cur := s.cur
	switch key {
	case keyPlayer:
		name := cur.PlayerName
		if name == "" {
			name = "?"
		}
		if !s.has(model.FieldHealth, model.FieldMoney) {
			return fmt.Sprintf("%s|%s", name, sideCode(cur.Side))
		}
		return fmt.Sprintf("%s|%s|%d:%d:%s", name, sideCode(cur.Side), cur.Vitals.Health, cur.Vitals.Armor, money(cur.Vitals.Money))
	case keyGame:
		return fmt.Sprintf("R%d|%d-%d|%s", cur.RoundNumber(), cur.ScoreCT, cur.ScoreT, phaseCode(cur.Phase))
	case keyEconomy:
		if !s.has(model.FieldMoney) {
			return "?"
		}
		m := cur.Vitals.Money
		return fmt.Sprintf("%s|eq%s|ar%s|rf%s", money(m), money(cur.Vitals.EquipValue),
			flag(m >= armorMoney), flag(m >= rifleMoney))
	case keyWeapon:
		if cur.ActiveWeapon == "" {
			return missingOr(s.has(model.FieldWeapons), "")
		}
		return Abbreviate(cur.ActiveWeapon)
	case keyUtility:
		if len(cur.Grenades) == 0 {
			return missingOr(s.has(model.FieldWeapons), "")
		}
		out := make([]string, len(cur.Grenades))
		for i, g := range cur.Grenades {
			out[i] = Abbreviate(g)
		}
		return strings.Join(out, ",")
	case keyBomb:
		if !s.has(model.FieldBomb) {
			return "?"
		}
		v := bombCode(cur.Bomb)
		if cur.BombSite != "" {
			v += "|" + cur.BombSite
		}
		if cur.BombCountdown > 0 {
			v += "|" + strconv.Itoa(cur.BombCountdown)
		}
		return v
	case keyKit:
		return flag(cur.Vitals.DefuseKit)
	case keyClock:
		if !s.has(model.FieldClock) || cur.ClockTime < 0 {
			return "?"
		}
		return strconv.Itoa(cur.ClockTime)
	case keyMap:
		if cur.Map == "" {
			return "?"
		}
		return Abbreviate(cur.Map)
	case keyEnemies, keyTeammates:
		if !s.has(model.FieldRoster) {
			return "?"
		}
		mates, enemies := cur.AliveCounts()
		if key == keyEnemies {
			return strconv.Itoa(enemies)
		}
		return strconv.Itoa(mates)
	case keyLosses:
		if !s.has(model.FieldScore) {
			return ""
		}
		return fmt.Sprintf("%d:%d", cur.LossStreakCT, cur.LossStreakT)
	case keyMatchStats:
		if !s.has(model.FieldMatchStats) {
			return ""
		}
		return fmt.Sprintf("%dk%dd", cur.Vitals.MatchKills, cur.Vitals.Deaths)
	case keyRoundKills:
		if !s.has(model.FieldRoundKills) {
			return "?"
		}
		return strconv.Itoa(cur.Vitals.RoundKills)
	case keyDelta:
		return s.delta()
	}
	return "?"
}

// delta lists vitals that changed since the previous compressed snapshot.
func (s source) delta() string {
	if s.prev == nil {
		return ""
	}
	type pair struct {
		key      string
		field    model.Field
		cur, old int
	}
	c, p := s.cur.Vitals, s.prev.Vitals
	pairs := []pair{
		{"hp", model.FieldHealth, c.Health, p.Health},
		{"ar", model.FieldArmor, c.Armor, p.Armor},
		{"$", model.FieldMoney, c.Money, p.Money},
		{"rk", model.FieldRoundKills, c.RoundKills, p.RoundKills},
		{"eq", model.FieldEquipValue, c.EquipValue, p.EquipValue},
	}
	var out []string
	for _, d := range pairs {
		if !s.cur.Present.Has(d.field) || !s.prev.Present.Has(d.field) || d.cur == d.old {
			continue
		}
		out = append(out, fmt.Sprintf("%s%+d", d.key, d.cur-d.old))
	}
	return strings.Join(out, ",")
}

func missingOr(present bool, v string) string {
	if !present {
		return "?"
	}
	return v
}
