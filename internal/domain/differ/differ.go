// Package differ turns consecutive telemetry snapshots into discrete events.
package differ

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
)

// latch holds a one-shot detector closed until the round it fired in is over.
type latch struct {
	set   bool
	round int
	known bool
}

func (l *latch) fire(cur *model.Snapshot) {
	l.set = true
	l.known = cur.Present.Has(model.FieldRound)
	l.round = cur.Round
}

// closed reports whether the latch still blocks cur. A new round number opens it
// even when the round end was never observed.
func (l *latch) closed(cur *model.Snapshot) bool {
	if !l.set {
		return false
	}
	if l.known && cur.Present.Has(model.FieldRound) && cur.Round != l.round {
		return false
	}
	return true
}

type detector struct {
	name string
	fn   func(prev, cur *model.Snapshot) []model.DetectedEvent
}

// Stats are cumulative counters for the status surface.
type Stats struct {
	Snapshots  uint64 `json:"snapshots"`
	OutOfOrder uint64 `json:"out_of_order"`
	Events     uint64 `json:"events"`
	Panics     uint64 `json:"detector_panics"`
	Baselines  uint64 `json:"baselines"`
}

// Differ keeps the previous snapshot and emits events for each new one.
// Update is serialized; callers feed snapshots in arrival order.
type Differ struct {
	mu     sync.Mutex
	th     Thresholds
	logger logger.Logger

	prev *model.Snapshot

	roundStart  latch
	bombPlanted latch
	clutch      latch

	killStreak      int
	lastKillAt      time.Time
	lastHealthWarn  time.Time
	lastEconomyWarn time.Time

	detectors []detector
	stats     Stats
}

// New builds a Differ with default thresholds.
func New(opts ...Option) *Differ {
	d := &Differ{
		th:     DefaultThresholds(),
		logger: logger.Get().Named("differ"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.detectors = []detector{
		{"round_start", d.detectRoundStart},
		{"kills", d.detectKills},
		{"health", d.detectHealth},
		{"economy", d.detectEconomy},
		{"bomb", d.detectBomb},
		{"clutch", d.detectClutch},
		{"side_switch", d.detectSideSwitch},
		{"overtime", d.detectOvertime},
		{"round_end", d.detectRoundEnd},
	}
	return d
}

// Update compares snap against the previous snapshot. The first snapshot, and
// the first one after a map change, only sets the baseline. A snapshot older
// than the previous one is discarded.
func (d *Differ) Update(snap model.Snapshot) []model.DetectedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.prev != nil && snap.ObservedAt.Before(d.prev.ObservedAt) {
		d.stats.OutOfOrder++
		metrics.RecordSnapshotOutOfOrder()
		return nil
	}
	d.stats.Snapshots++
	metrics.RecordSnapshot(snap.RawSize)

	if d.prev == nil || mapChanged(d.prev, &snap) {
		d.resetLocked()
		d.prev = &snap
		d.stats.Baselines++
		return nil
	}

	prev := d.prev
	var out []model.DetectedEvent
	for _, det := range d.detectors {
		out = append(out, d.run(det, prev, &snap)...)
	}
	d.prev = &snap

	for _, ev := range out {
		metrics.RecordEventDetected(ev.Kind.String())
	}
	d.stats.Events += uint64(len(out))
	return out
}

// Stats returns a copy of the counters.
func (d *Differ) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Differ) resetLocked() {
	d.roundStart = latch{}
	d.bombPlanted = latch{}
	d.clutch = latch{}
	d.killStreak = 0
	d.lastKillAt = time.Time{}
	d.lastHealthWarn = time.Time{}
	d.lastEconomyWarn = time.Time{}
}

func (d *Differ) run(det detector, prev, cur *model.Snapshot) (out []model.DetectedEvent) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			d.stats.Panics++
			metrics.RecordDetectorPanic(det.name)
			d.logger.Error(context.Background(), "detector panicked",
				logger.String("detector", det.name),
				logger.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	return det.fn(prev, cur)
}

func mapChanged(prev, cur *model.Snapshot) bool {
	return prev.Present.Has(model.FieldMap) && cur.Present.Has(model.FieldMap) && prev.Map != cur.Map
}

func both(prev, cur *model.Snapshot, fields ...model.Field) bool {
	return prev.Present.Has(fields...) && cur.Present.Has(fields...)
}

func event(cur *model.Snapshot, kind model.EventKind, prio model.Priority, p model.Payload) model.DetectedEvent {
	return model.DetectedEvent{
		Kind:       kind,
		Priority:   prio,
		Payload:    p,
		ObservedAt: cur.ObservedAt,
		Subject:    cur.Subject(),
	}
}

func (d *Differ) matchPoint(cur *model.Snapshot) bool {
	return cur.Present.Has(model.FieldScore) && (cur.ScoreCT >= d.th.HalfRounds || cur.ScoreT >= d.th.HalfRounds)
}
