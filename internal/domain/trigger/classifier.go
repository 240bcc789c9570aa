// Package trigger decides which detected events are worth an inference call.
package trigger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
)

// Rejection and admission reasons.
const (
	ReasonNotMainSubject     = "not_main_subject"
	ReasonCooldown           = "cooldown_active"
	ReasonRateLimit          = "rate_limit_exceeded"
	ReasonDuplicateType      = "duplicate_type_spam"
	ReasonLowValue           = "low_strategic_value"
	ReasonCritical           = "critical_event"
	ReasonImportant          = "important_with_context"
	ReasonContextual         = "contextual_strategic"
	ReasonStrategicMoment    = "strategic_round_moment"
	ReasonPerformanceSupport = "performance_support"
)

const (
	initialConfidence = 50
	switchConfidence  = 60
	confidenceStep    = 2
	maxConfidence     = 100
	spamWindow        = time.Minute
)

// Decision is the outcome of ShouldAdmit. Rejections are values, not errors.
type Decision struct {
	Admit      bool     `json:"admit"`
	Reason     string   `json:"reason"`
	Confidence int      `json:"confidence"`
	Score      int      `json:"score"`
	Tier       Tier     `json:"tier"`
	Rules      []string `json:"rules,omitempty"`
}

// Code is the reason without its parenthesized detail.
func (d Decision) Code() string {
	if i := strings.IndexByte(d.Reason, ' '); i > 0 {
		return d.Reason[:i]
	}
	return d.Reason
}

// Stats are cumulative classifier counters.
type Stats struct {
	Evaluated        uint64            `json:"evaluated"`
	Admitted         uint64            `json:"admitted"`
	Rejected         uint64            `json:"rejected"`
	IdentitySwitches uint64            `json:"identity_switches"`
	ByReason         map[string]uint64 `json:"by_reason"`
}

type admission struct {
	kind model.EventKind
	at   time.Time
}

// Classifier owns the coached player's identity and the admission history.
// It is safe for concurrent use; time comes from the events it is given.
type Classifier struct {
	mu     sync.Mutex
	cfg    Config
	logger logger.Logger

	identity   model.PlayerIdentity
	lastAdmit  time.Time
	admissions []admission

	stats Stats
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		cfg:    DefaultConfig(),
		logger: logger.Get().Named("trigger"),
		stats:  Stats{ByReason: make(map[string]uint64)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldAdmit runs the identity gate, the anti-spam gate and importance
// scoring for ev, in that order. An admitted event is recorded in the
// admission history.
func (c *Classifier) ShouldAdmit(ev model.DetectedEvent, snap model.Snapshot, rc RoundContext) Decision {
	now := ev.ObservedAt
	if now.IsZero() {
		now = snap.ObservedAt
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evaluated++

	if !c.checkIdentity(&snap, now) {
		return c.finish(ev, Decision{Reason: ReasonNotMainSubject})
	}

	if !(ev.Priority == model.PriorityCritical && c.cfg.CriticalOverride) {
		if reason, ok := c.checkSpam(ev.Kind, now); !ok {
			return c.finish(ev, Decision{Reason: reason})
		}
	}

	ectx := newEvalContext(ev, snap, rc, c.cfg.HalfRounds)
	d := decide(ectx, tierOf(ectx), c.cfg)
	if d.Admit {
		c.record(ev.Kind, now)
	}
	return c.finish(ev, d)
}

// Identity returns the current identity.
func (c *Classifier) Identity() model.PlayerIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// RestoreIdentity seeds the identity from a checkpoint.
func (c *Classifier) RestoreIdentity(id model.PlayerIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id.Confidence = clamp(id.Confidence, 0, maxConfidence)
	c.identity = id
	metrics.UpdateIdentityConfidence(id.Confidence)
}

// Stats returns a copy of the counters.
func (c *Classifier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.ByReason = make(map[string]uint64, len(c.stats.ByReason))
	for k, v := range c.stats.ByReason {
		out.ByReason[k] = v
	}
	return out
}

func (c *Classifier) finish(ev model.DetectedEvent, d Decision) Decision {
	if d.Admit {
		c.stats.Admitted++
	} else {
		c.stats.Rejected++
	}
	c.stats.ByReason[d.Code()]++
	metrics.RecordDecision(d.Admit, d.Code())
	c.logger.Debug(context.Background(), "event classified",
		logger.String("kind", ev.Kind.String()),
		logger.Bool("admit", d.Admit),
		logger.String("reason", d.Reason),
		logger.Int("score", d.Score),
	)
	return d
}

// effectiveConfidence applies the per-minute decay since the identity was last seen.
func (c *Classifier) effectiveConfidence(now time.Time) int {
	idle := now.Sub(c.identity.LastSeenAt)
	if idle <= 0 {
		return c.identity.Confidence
	}
	decay := int(idle/time.Minute) * c.cfg.IdentityDecayPerMinute
	return clamp(c.identity.Confidence-decay, 0, maxConfidence)
}

func (c *Classifier) checkIdentity(snap *model.Snapshot, now time.Time) bool {
	id, name := snap.PlayerID, snap.PlayerName
	if id == "" && name == "" {
		return false
	}
	if !c.identity.Known() {
		c.establish(id, name, initialConfidence, now)
		return true
	}

	eff := c.effectiveConfidence(now)
	if c.identity.Matches(id, name) {
		c.identity.Confidence = clamp(eff+confidenceStep, 0, maxConfidence)
		c.identity.InteractionCount++
		if now.After(c.identity.LastSeenAt) {
			c.identity.LastSeenAt = now
		}
		if c.identity.ExternalID == "" {
			c.identity.ExternalID = id
		}
		if name != "" {
			c.identity.Name = name
		}
		metrics.UpdateIdentityConfidence(c.identity.Confidence)
		return true
	}

	if now.Sub(c.identity.FirstSeenAt) < c.cfg.IdentityLockWindow && eff >= c.cfg.IdentityLockConfidence {
		return false
	}
	if now.Sub(c.identity.LastSeenAt) >= c.cfg.IdentityReevaluate || eff < c.cfg.IdentityFloor {
		c.logger.Info(context.Background(), "coached player changed",
			logger.String("from", c.identity.Name),
			logger.String("to", name),
			logger.Int("confidence", eff),
		)
		c.stats.IdentitySwitches++
		c.establish(id, name, switchConfidence, now)
		return true
	}
	return false
}

func (c *Classifier) establish(id, name string, confidence int, now time.Time) {
	c.identity = model.PlayerIdentity{
		Name:             name,
		ExternalID:       id,
		Confidence:       confidence,
		FirstSeenAt:      now,
		LastSeenAt:       now,
		InteractionCount: 1,
	}
	metrics.UpdateIdentityConfidence(confidence)
}

func (c *Classifier) checkSpam(kind model.EventKind, now time.Time) (string, bool) {
	if !c.lastAdmit.IsZero() {
		if since := now.Sub(c.lastAdmit); since < c.cfg.MinInterval {
			left := int(math.Round((c.cfg.MinInterval - since).Seconds()))
			return fmt.Sprintf("%s (%ds remaining)", ReasonCooldown, left), false
		}
	}

	recent, same := 0, 0
	for _, a := range c.admissions {
		if now.Sub(a.at) >= spamWindow {
			continue
		}
		recent++
		if a.kind == kind {
			same++
		}
	}
	if recent >= c.cfg.MaxPerMinute {
		return fmt.Sprintf("%s (%d/%d per minute)", ReasonRateLimit, recent, c.cfg.MaxPerMinute), false
	}
	if same >= c.cfg.MaxSameTypePerMinute {
		return fmt.Sprintf("%s (%s repeated %d times)", ReasonDuplicateType, kind, same), false
	}
	return "", true
}

func (c *Classifier) record(kind model.EventKind, now time.Time) {
	if now.After(c.lastAdmit) {
		c.lastAdmit = now
	}
	c.admissions = append(c.admissions, admission{kind: kind, at: now})
	if over := len(c.admissions) - c.cfg.HistorySize; over > 0 {
		c.admissions = append(c.admissions[:0], c.admissions[over:]...)
	}
}

func decide(c evalContext, tier Tier, cfg Config) Decision {
	if tier == TierCritical {
		return Decision{Admit: true, Reason: ReasonCritical, Confidence: 100, Score: maxTierScore, Tier: tier}
	}

	ts, hits := tierScore(c, tier)
	ss, strategic := sum(c, strategicRules)
	d := Decision{Score: ts + ss, Tier: tier, Rules: append(hits, strategic...)}

	admit := func(reason string, confidence int) Decision {
		d.Admit, d.Reason, d.Confidence = true, reason, confidence
		return d
	}
	switch {
	case tier == TierImportant && d.Score >= cfg.ImportantThreshold:
		return admit(ReasonImportant, 85)
	case tier == TierContextual && d.Score >= cfg.ContextualThreshold:
		return admit(ReasonContextual, 75)
	case isAlwaysStrategic(c):
		return admit(ReasonStrategicMoment, 80)
	case c.round.Struggling() && d.Score >= cfg.SupportThreshold:
		return admit(ReasonPerformanceSupport, 70)
	}
	d.Reason = fmt.Sprintf("%s (score: %d)", ReasonLowValue, d.Score)
	return d
}
