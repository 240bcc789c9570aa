// Package memory stores past situations with the coaching given for them and
// the feedback on how that coaching worked.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
)

// Match kinds, in order of preference.
const (
	MatchExact       = "exact"
	MatchSituation   = "situation"
	MatchOtherPlayer = "other_player"
)

// SimilarRecord is a lookup hit.
type SimilarRecord struct {
	Record     model.MemoryRecord `json:"record"`
	Match      string             `json:"match"`
	Confidence float64            `json:"confidence"`
}

// Stats are memory counters for the status surface.
type Stats struct {
	Size       int     `json:"size"`
	Lookups    uint64  `json:"lookups"`
	Hits       uint64  `json:"hits"`
	HitRate    float64 `json:"hit_rate"`
	Accurate   uint64  `json:"accurate"`
	Inaccurate uint64  `json:"inaccurate"`
	Evicted    uint64  `json:"evicted"`
}

// Store is a bounded, fingerprinted record store. Reads take a shared lock.
type Store struct {
	mu      sync.RWMutex
	cfg     Config
	logger  logger.Logger
	now     func() time.Time
	session func() SessionState

	records map[string]*model.MemoryRecord
	order   []string // record ids, oldest first

	stats Stats

	sched gocron.Scheduler
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		cfg:     DefaultConfig(),
		logger:  logger.Get().Named("memory"),
		now:     time.Now,
		records: make(map[string]*model.MemoryRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns reusable records for a situation: exact fingerprint matches
// first, then similar records of the same player, then similar records of
// other players at reduced confidence. At most MaxResults are returned.
func (s *Store) Lookup(fingerprint, situationKey string, sit model.Situation) []SimilarRecord {
	s.mu.RLock()
	var exact, same, other []SimilarRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.records[s.order[i]]
		switch {
		case r.Fingerprint == fingerprint:
			exact = append(exact, SimilarRecord{Record: *r, Match: MatchExact, Confidence: 1})
		case r.SituationKey != situationKey:
		case samePlayer(r.Situation.PlayerID, sit.PlayerID):
			if sim := Similarity(sit, r.Situation, s.cfg.Weights); sim > s.cfg.SameThreshold {
				same = append(same, SimilarRecord{Record: *r, Match: MatchSituation, Confidence: sim})
			}
		case r.Situation.Type == sit.Type:
			if sim := Similarity(sit, r.Situation, s.cfg.Weights); sim > s.cfg.OtherThreshold {
				other = append(other, SimilarRecord{Record: *r, Match: MatchOtherPlayer, Confidence: sim * s.cfg.OtherPenalty})
			}
		}
	}
	s.mu.RUnlock()

	byConfidence(same)
	byConfidence(other)
	out := append(append(exact, same...), other...)
	if len(out) > s.cfg.MaxResults {
		out = out[:s.cfg.MaxResults]
	}

	s.mu.Lock()
	s.stats.Lookups++
	if len(out) > 0 {
		s.stats.Hits++
	}
	s.mu.Unlock()
	metrics.RecordMemoryLookup(len(out) > 0)
	return out
}

// Record stores a new record and enforces the cap, oldest first.
func (s *Store) Record(fingerprint string, sit model.Situation, compressed, response string) model.MemoryRecord {
	r := &model.MemoryRecord{
		ID:                uuid.NewString(),
		Fingerprint:       fingerprint,
		SituationKey:      SituationKey(sit.Type),
		Situation:         sit,
		CompressedContext: compressed,
		Response:          response,
		CreatedAt:         s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(r)
	s.enforceCapLocked()
	metrics.UpdateMemoryRecords(len(s.records))
	return *r
}

// MarkOutcome sets the effectiveness of a record once. Repeating the same
// outcome is a no-op.
func (s *Store) MarkOutcome(id string, eff model.Effectiveness) error {
	if eff == model.EffectivenessUnset {
		return ErrInvalidEffectiveness
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	switch r.Effectiveness {
	case eff:
		return nil
	case model.EffectivenessUnset:
	default:
		return fmt.Errorf("%w: %s is %s", ErrOutcomeAlreadySet, id, r.Effectiveness)
	}

	r.Effectiveness = eff
	r.OutcomeAt = s.now()
	switch eff {
	case model.EffectivenessPositive:
		s.stats.Accurate++
	case model.EffectivenessNegative:
		s.stats.Inaccurate++
	}
	metrics.RecordMemoryOutcome(eff.String())
	return nil
}

// Get returns a record by id.
func (s *Store) Get(id string) (model.MemoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return model.MemoryRecord{}, false
	}
	return *r, true
}

// Sweep purges records older than the retention window at now and returns
// how many were removed.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.cfg.Retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	keep := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.records[id].CreatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
			continue
		}
		keep = append(keep, id)
	}
	s.order = keep
	if removed > 0 {
		s.stats.Evicted += uint64(removed)
		metrics.RecordMemoryEviction("ttl", removed)
		s.logger.Info(context.Background(), "expired memory records purged", logger.Int("count", removed))
	}
	metrics.UpdateMemoryRecords(len(s.records))
	return removed
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Stats returns a copy of the counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.stats
	out.Size = len(s.records)
	if out.Lookups > 0 {
		out.HitRate = float64(out.Hits) / float64(out.Lookups)
	}
	return out
}

// Start schedules the retention sweep and, when a path is configured, the
// periodic checkpoint.
func (s *Store) Start(_ context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create memory scheduler: %w", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(s.cfg.SweepInterval),
		gocron.NewTask(func() { s.Sweep(s.now()) }),
		gocron.WithName("memory-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("failed to schedule memory sweep: %w", err)
	}
	if s.cfg.Path != "" {
		if _, err := sched.NewJob(
			gocron.DurationJob(s.cfg.CheckpointInterval),
			gocron.NewTask(func() { _ = s.Checkpoint() }),
			gocron.WithName("memory-checkpoint"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return fmt.Errorf("failed to schedule memory checkpoint: %w", err)
		}
	}
	sched.Start()

	s.mu.Lock()
	s.sched = sched
	s.mu.Unlock()
	return nil
}

// Shutdown stops the scheduled jobs, waiting for running ones, and writes a
// final checkpoint.
func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched != nil {
		done := make(chan error, 1)
		go func() { done <- sched.Shutdown() }()
		select {
		case err := <-done:
			if err != nil {
				s.logger.Warn(ctx, "memory scheduler shutdown", logger.Error(err))
			}
		case <-ctx.Done():
			return fmt.Errorf("memory shutdown: %w", ctx.Err())
		}
	}
	if s.cfg.Path == "" {
		return nil
	}
	return s.Checkpoint()
}

func (s *Store) insertLocked(r *model.MemoryRecord) {
	s.records[r.ID] = r
	n := len(s.order)
	if n == 0 || !r.CreatedAt.Before(s.records[s.order[n-1]].CreatedAt) {
		s.order = append(s.order, r.ID)
		return
	}
	i := sort.Search(n, func(i int) bool {
		return s.records[s.order[i]].CreatedAt.After(r.CreatedAt)
	})
	s.order = append(s.order, "")
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = r.ID
}

func (s *Store) enforceCapLocked() {
	over := len(s.order) - s.cfg.Cap
	if over <= 0 {
		return
	}
	for _, id := range s.order[:over] {
		delete(s.records, id)
	}
	s.order = append(s.order[:0], s.order[over:]...)
	s.stats.Evicted += uint64(over)
	metrics.RecordMemoryEviction("cap", over)
}

func samePlayer(a, b string) bool {
	return a == "" || b == "" || a == b
}

func byConfidence(rs []SimilarRecord) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Confidence > rs[j].Confidence })
}
