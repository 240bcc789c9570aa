// Package orchestrator paces admitted analysis requests into the inference
// handler: one call in flight, per-type cooldowns, a minimum gap between
// dispatches, back-off on throttling and preemption by critical requests.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/clutch/internal/adapters/inference"
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
)

// Dispatch outcomes reported to metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeThrottled = "throttled"
	OutcomePreempted = "preempted"
)

// Queue holds requests waiting for dispatch.
type Queue interface {
	Push(req model.AnalysisRequest) (*model.AnalysisRequest, error)
	Pop() (model.AnalysisRequest, bool)
	Peek() (model.AnalysisRequest, bool)
	Len() int
	Close() []model.AnalysisRequest
}

// Handler performs the work for one request.
type Handler interface {
	Handle(ctx context.Context, req model.AnalysisRequest) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req model.AnalysisRequest) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req model.AnalysisRequest) error { //nolint:gocritic // hugeParam: requests travel by value
	return f(ctx, req)
}

// InFlight describes the request currently being handled.
type InFlight struct {
	ID        string          `json:"id"`
	EventType model.EventKind `json:"event_type"`
	Priority  model.Priority  `json:"priority"`
	StartedAt time.Time       `json:"started_at"`
}

// Stats is a point-in-time view of the orchestrator.
type Stats struct {
	QueueDepth     int                   `json:"queue_depth"`
	InFlight       *InFlight             `json:"in_flight,omitempty"`
	Cooldowns      []model.CooldownEntry `json:"cooldowns"`
	ThrottledUntil time.Time             `json:"throttled_until,omitempty"`
	Enqueued       uint64                `json:"enqueued"`
	Cooldown       uint64                `json:"rejected_cooldown"`
	Duplicate      uint64                `json:"rejected_duplicate"`
	Evicted        uint64                `json:"evicted"`
	Completed      uint64                `json:"completed"`
	Failed         uint64                `json:"failed"`
	Throttled      uint64                `json:"throttled"`
	Preempted      uint64                `json:"preempted"`
	Discarded      uint64                `json:"discarded"`
}

type call struct {
	info      InFlight
	cancel    context.CancelFunc
	preempted bool
}

// Orchestrator owns the queue and the cooldown table.
type Orchestrator struct {
	mu      sync.Mutex
	cfg     Config
	queue   Queue
	handler Handler
	logger  logger.Logger
	now     func() time.Time

	cooldowns      map[model.EventKind]model.CooldownEntry
	lastDispatch   time.Time
	throttledUntil time.Time
	inflight       *call
	stopped        bool
	running        bool
	stats          Stats

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// New creates an Orchestrator draining q into h.
func New(q Queue, h Handler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       DefaultConfig(),
		queue:     q,
		handler:   h,
		logger:    logger.Get().Named("orchestrator"),
		now:       time.Now,
		cooldowns: make(map[model.EventKind]model.CooldownEntry),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Window returns the cooldown window for kind.
func (o *Orchestrator) Window(kind model.EventKind) time.Duration {
	switch {
	case kind.IsRoundStart(), kind == model.KindBombPlanted, kind == model.KindLowHealth, kind == model.KindEconomyShift:
		return o.cfg.ShortCooldown
	case kind == model.KindSideSwitch:
		return o.cfg.SideSwitchCooldown
	default:
		return o.cfg.DefaultCooldown
	}
}

// Enqueue admits req unless its type is cooling down or already queued. A
// critical request preempts a lower priority call in flight.
func (o *Orchestrator) Enqueue(ctx context.Context, req model.AnalysisRequest) error { //nolint:gocritic // hugeParam: requests travel by value
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return ErrStopped
	}
	now := o.now()
	entry, ok := o.cooldowns[req.EventType]
	if ok {
		if left := entry.Remaining(now); left > 0 {
			o.stats.Cooldown++
			metrics.RecordQueueDropped("cooldown")
			return fmt.Errorf("%w: %s for %s", ErrCooldown, req.EventType, left.Round(time.Millisecond))
		}
	}

	evicted, err := o.queue.Push(req)
	if err != nil {
		o.stats.Duplicate++
		return err
	}
	if evicted != nil && evicted.ID == req.ID {
		o.stats.Evicted++
		return fmt.Errorf("%w: %s", ErrQueueFull, req.EventType)
	}
	if evicted != nil {
		o.stats.Evicted++
		o.logger.Debug(ctx, "queue full, request evicted",
			logger.String("event_type", evicted.EventType.String()),
			logger.String("priority", evicted.Priority.String()))
	}

	if now.After(entry.LastFiredAt) {
		entry.LastFiredAt = now
	}
	entry.EventType = req.EventType
	entry.Window = o.Window(req.EventType)
	o.cooldowns[req.EventType] = entry
	o.stats.Enqueued++
	metrics.RecordRequestEnqueued()

	if req.Priority == model.PriorityCritical {
		if c := o.inflight; c != nil && c.info.Priority < model.PriorityCritical && !c.preempted {
			c.preempted = true
			c.cancel()
			o.logger.Info(ctx, "in-flight request preempted",
				logger.String("preempted", c.info.EventType.String()),
				logger.String("by", req.EventType.String()))
		}
		select {
		case o.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Run drains the queue until ctx is done or Shutdown is called.
func (o *Orchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	if o.running || o.stopped {
		o.mu.Unlock()
		return
	}
	o.running = true
	o.mu.Unlock()
	defer close(o.done)

	ticker := time.NewTicker(o.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.quit:
			return
		case <-ticker.C:
		case <-o.wake:
		}
		for o.DrainOnce(ctx) {
		}
	}
}

// DrainOnce dispatches the head of the queue if pacing allows and reports
// whether a request was handled.
func (o *Orchestrator) DrainOnce(ctx context.Context) bool {
	o.mu.Lock()
	if o.stopped || o.inflight != nil {
		o.mu.Unlock()
		return false
	}
	now := o.now()
	if !o.throttledUntil.IsZero() {
		if now.Before(o.throttledUntil) {
			o.mu.Unlock()
			return false
		}
		o.throttledUntil = time.Time{}
		metrics.UpdateThrottleActive(false)
	}
	head, ok := o.queue.Peek()
	if !ok {
		o.mu.Unlock()
		return false
	}
	if head.Priority != model.PriorityCritical && !o.lastDispatch.IsZero() && now.Sub(o.lastDispatch) < o.cfg.MinInterval {
		o.mu.Unlock()
		return false
	}
	req, _ := o.queue.Pop()
	callCtx, cancel := context.WithCancel(ctx)
	c := &call{
		info:   InFlight{ID: req.ID, EventType: req.EventType, Priority: req.Priority, StartedAt: now},
		cancel: cancel,
	}
	o.inflight = c
	o.lastDispatch = now
	o.mu.Unlock()

	err := o.handle(callCtx, req)
	cancel()

	o.mu.Lock()
	o.inflight = nil
	outcome := o.settleLocked(ctx, c, req, err)
	o.mu.Unlock()

	metrics.RecordDispatch(outcome)
	return true
}

func (o *Orchestrator) handle(ctx context.Context, req model.AnalysisRequest) (err error) { //nolint:gocritic // hugeParam: requests travel by value
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return o.handler.Handle(ctx, req)
}

func (o *Orchestrator) settleLocked(ctx context.Context, c *call, req model.AnalysisRequest, err error) string { //nolint:gocritic // hugeParam: requests travel by value
	fields := []logger.Field{
		logger.String("request_id", req.ID),
		logger.String("event_type", req.EventType.String()),
		logger.String("priority", req.Priority.String()),
	}
	switch {
	case err == nil:
		o.stats.Completed++
		return OutcomeCompleted
	case c.preempted:
		o.stats.Preempted++
		o.logger.Info(ctx, "request dropped after preemption", fields...)
		return OutcomePreempted
	case errors.Is(err, inference.ErrThrottled):
		o.stats.Throttled++
		o.throttledUntil = o.now().Add(o.cfg.ThrottleCooldown)
		metrics.UpdateThrottleActive(true)
		evicted, perr := o.queue.Push(req)
		if perr != nil {
			o.logger.Debug(ctx, "throttled request not requeued", append(fields, logger.Error(perr))...)
		}
		if evicted != nil {
			o.stats.Evicted++
		}
		o.logger.Warn(ctx, "inference throttled, backing off",
			append(fields, logger.Duration("cooldown", o.cfg.ThrottleCooldown))...)
		return OutcomeThrottled
	default:
		o.stats.Failed++
		metrics.RecordErrorByComponent("orchestrator", "dispatch_failed")
		o.logger.Error(ctx, "request failed", append(fields, logger.Error(err))...)
		return OutcomeFailed
	}
}

// Shutdown stops admitting requests, waits for the in-flight call or ctx,
// then discards whatever is still queued.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.stopped = true
	running := o.running
	close(o.quit)
	o.mu.Unlock()

	var err error
	if running {
		select {
		case <-o.done:
		case <-ctx.Done():
			o.mu.Lock()
			if o.inflight != nil {
				o.inflight.cancel()
			}
			o.mu.Unlock()
			err = fmt.Errorf("orchestrator shutdown: %w", ctx.Err())
		}
	}

	discarded := o.queue.Close()
	o.mu.Lock()
	o.stats.Discarded += uint64(len(discarded))
	o.mu.Unlock()
	if len(discarded) > 0 {
		o.logger.Info(ctx, "queued requests discarded", logger.Int("count", len(discarded)))
	}
	return err
}

// Cooldowns returns the cooldown table ordered by event type.
func (o *Orchestrator) Cooldowns() []model.CooldownEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cooldownsLocked()
}

func (o *Orchestrator) cooldownsLocked() []model.CooldownEntry {
	out := make([]model.CooldownEntry, 0, len(o.cooldowns))
	for _, e := range o.cooldowns {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventType < out[j].EventType })
	return out
}

// RestoreCooldowns merges saved entries into the table. Timestamps only
// move forward.
func (o *Orchestrator) RestoreCooldowns(entries []model.CooldownEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range entries {
		if e.EventType == model.KindUnknown {
			continue
		}
		cur, ok := o.cooldowns[e.EventType]
		if ok && !e.LastFiredAt.After(cur.LastFiredAt) {
			continue
		}
		e.Window = o.Window(e.EventType)
		o.cooldowns[e.EventType] = e
	}
}

// Stats returns a snapshot of queue, cooldown and dispatch state.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.stats
	out.QueueDepth = o.queue.Len()
	out.Cooldowns = o.cooldownsLocked()
	out.ThrottledUntil = o.throttledUntil
	if o.inflight != nil {
		info := o.inflight.info
		out.InFlight = &info
	}
	return out
}
