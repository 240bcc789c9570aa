// Package service wires the coaching pipeline: telemetry in, events through
// the classifier and orchestrator, coaching lines out.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/clutch/internal/adapters/inference"
	"github.com/okian/clutch/internal/adapters/mq/orchestrator"
	"github.com/okian/clutch/internal/adapters/mq/queue"
	"github.com/okian/clutch/internal/adapters/notify"
	"github.com/okian/clutch/internal/config"
	"github.com/okian/clutch/internal/domain/compress"
	"github.com/okian/clutch/internal/domain/differ"
	"github.com/okian/clutch/internal/domain/gsi"
	"github.com/okian/clutch/internal/domain/memory"
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/internal/domain/trigger"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
)

// EventOutcome is what happened to one detected event during a tick.
type EventOutcome struct {
	Kind     model.EventKind `json:"kind"`
	Priority model.Priority  `json:"priority"`
	Admitted bool            `json:"admitted"`
	Reason   string          `json:"reason"`
	Score    int             `json:"score"`
	Queued   bool            `json:"queued"`
	Error    string          `json:"error,omitempty"`
}

// IngestResult summarizes one processed telemetry document.
type IngestResult struct {
	Events  []EventOutcome `json:"events"`
	Skipped []string       `json:"skipped_sections,omitempty"`
}

// Status is the operational view served on /status.
type Status struct {
	Started      bool                 `json:"started"`
	Inference    bool                 `json:"inference"`
	Identity     model.PlayerIdentity `json:"identity"`
	Orchestrator orchestrator.Stats   `json:"orchestrator"`
	Memory       memory.Stats         `json:"memory"`
	Differ       differ.Stats         `json:"differ"`
	Trigger      trigger.Stats        `json:"trigger"`
	Compress     compress.Stats       `json:"compress"`
	Rounds       trigger.RoundContext `json:"rounds"`
}

// Service owns every pipeline component.
type Service struct {
	// tick serializes differ and classifier work per snapshot.
	tick    sync.Mutex
	mapName string
	mu   sync.RWMutex

	cfg    *config.Config
	logger logger.Logger
	now    func() time.Time
	gen    inference.Generator
	sinks  []notify.Sink

	differ     *differ.Differ
	history    *trigger.History
	classifier *trigger.Classifier
	orch       *orchestrator.Orchestrator
	compressor *compress.Compressor
	memory     *memory.Store
	client     *inference.Client
	hub        *notify.Hub

	started bool
	cancel  context.CancelFunc
	runDone chan struct{}
}

// New builds the pipeline. Inference is disabled when no generator is given
// and no API key is configured; fallback lines are used instead.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg: config.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg

	s.differ = differ.New(
		differ.WithThresholds(cfg.Differ),
		differ.WithLogger(s.logger.Named("differ")),
	)
	s.history = trigger.NewHistory(cfg.Trigger.RecentRounds)
	s.classifier = trigger.New(
		trigger.WithConfig(cfg.Trigger),
		trigger.WithLogger(s.logger.Named("trigger")),
	)
	s.compressor = compress.New(
		compress.WithMaxTokens(cfg.Compress.MaxTokens),
		compress.WithLogger(s.logger.Named("compress")),
	)
	s.orch = orchestrator.New(
		queue.NewPriorityQueue(queue.WithMaxDepth(cfg.Orchestrator.MaxDepth)),
		orchestrator.HandlerFunc(s.dispatch),
		orchestrator.WithConfig(cfg.Orchestrator),
		orchestrator.WithLogger(s.logger.Named("orchestrator")),
		orchestrator.WithClock(s.now),
	)
	s.memory = memory.New(
		memory.WithConfig(cfg.Memory),
		memory.WithLogger(s.logger.Named("memory")),
		memory.WithClock(s.now),
		memory.WithSessionState(s.sessionState),
	)
	hubOpts := []notify.Option{
		notify.WithConfig(cfg.Notify),
		notify.WithLogger(s.logger.Named("notify")),
		notify.WithClock(s.now),
		notify.WithSink(notify.LogSink{Logger: s.logger.Named("coach")}),
	}
	for _, sink := range s.sinks {
		hubOpts = append(hubOpts, notify.WithSink(sink))
	}
	s.hub = notify.New(hubOpts...)

	infOpts := []inference.Option{
		inference.WithConfig(cfg.Inference),
		inference.WithLogger(s.logger.Named("inference")),
	}
	switch {
	case s.gen != nil:
		s.client = inference.New(s.gen, infOpts...)
	case cfg.Inference.APIKey != "":
		client, err := inference.NewOpenAI(cfg.Inference, infOpts...)
		if err != nil {
			return nil, err
		}
		s.client = client
	}
	return s, nil
}

// Start restores saved memory and session state, schedules memory jobs and
// starts the drain loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting coaching service...")

	state, err := s.memory.Load()
	if err != nil {
		// Memory stays usable, just not restored.
		s.logger.Warn(ctx, "memory restore failed; starting cold", logger.Error(err))
	}
	if state.Identity != nil && state.Identity.Known() {
		s.classifier.RestoreIdentity(*state.Identity)
	}
	s.orch.RestoreCooldowns(state.Cooldowns)

	if err := s.memory.Start(ctx); err != nil {
		return fmt.Errorf("failed to start memory: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.runDone = make(chan struct{})
	go func() {
		defer close(s.runDone)
		s.orch.Run(runCtx)
	}()

	s.started = true
	s.logger.Info(ctx, "coaching service started",
		logger.Bool("inference", s.client != nil),
		logger.Int("memory_records", s.memory.Len()),
		logger.Int("restored_cooldowns", len(state.Cooldowns)),
	)
	return nil
}

// Stop drains the orchestrator and writes the final memory checkpoint.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping coaching service...")

	var errs []error
	if err := s.orch.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	<-s.runDone
	if err := s.memory.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "coaching service stopped")
	return errors.Join(errs...)
}

// Ingest decodes a telemetry document received at receivedAt and processes it.
func (s *Service) Ingest(ctx context.Context, body []byte, receivedAt time.Time) (IngestResult, error) {
	res, err := gsi.Decode(body, receivedAt)
	if err != nil {
		metrics.RecordErrorByComponent("gsi", "malformed")
		return IngestResult{}, err
	}
	if want := s.cfg.Ingress.AuthToken; want != "" && res.AuthToken != want {
		metrics.RecordErrorByComponent("gsi", "unauthorized")
		return IngestResult{}, ErrUnauthorized
	}
	if len(res.Skipped) > 0 {
		s.logger.Debug(ctx, "telemetry sections skipped", logger.Any("sections", res.Skipped))
	}
	return IngestResult{
		Events:  s.ProcessSnapshot(ctx, res.Snapshot),
		Skipped: res.Skipped,
	}, nil
}

// ProcessSnapshot runs one tick: detect events, classify each and enqueue the
// admitted ones. Ticks are serialized.
func (s *Service) ProcessSnapshot(ctx context.Context, snap model.Snapshot) []EventOutcome { //nolint:gocritic // hugeParam: snapshots travel by value
	s.tick.Lock()
	defer s.tick.Unlock()

	s.trackMap(ctx, &snap)
	events := s.differ.Update(snap)
	out := make([]EventOutcome, 0, len(events))
	for _, ev := range events {
		s.history.Observe(ev, snap)
		d := s.classifier.ShouldAdmit(ev, snap, s.history.Context())
		o := EventOutcome{
			Kind:     ev.Kind,
			Priority: ev.Priority,
			Admitted: d.Admit,
			Reason:   d.Reason,
			Score:    d.Score,
		}
		if d.Admit {
			if err := s.orch.Enqueue(ctx, trigger.NewRequest(ev, snap, d)); err != nil {
				o.Error = err.Error()
				s.logger.Debug(ctx, "admitted event not queued",
					logger.String("kind", ev.Kind.String()), logger.Error(err))
			} else {
				o.Queued = true
			}
		}
		out = append(out, o)
	}
	return out
}

// trackMap clears round history and the compression baseline when the map
// changes. Callers hold tick.
func (s *Service) trackMap(ctx context.Context, snap *model.Snapshot) {
	if !snap.Present.Has(model.FieldMap) || snap.Map == "" {
		return
	}
	if s.mapName != "" && s.mapName != snap.Map {
		s.history.Reset()
		s.compressor.Reset()
		s.logger.Info(ctx, "map changed, match state cleared",
			logger.String("from", s.mapName),
			logger.String("to", snap.Map))
	}
	s.mapName = snap.Map
}

// dispatch answers one request: compress, consult memory, call inference,
// remember and notify. A throttle error is returned untouched so the
// orchestrator can requeue.
func (s *Service) dispatch(ctx context.Context, req model.AnalysisRequest) error { //nolint:gocritic // hugeParam: requests travel by value
	payload := s.compressor.Compress(req.Snapshot, req.EventType)
	sit := memory.SituationFor(req.EventType, &req.Snapshot)
	fp := memory.Fingerprint(sit)
	hits := s.memory.Lookup(fp, memory.SituationKey(sit.Type), sit)

	if rec, ok := reusable(hits); ok {
		s.publish(ctx, &req, rec.Response, notify.SourceMemory, rec.ID)
		return nil
	}

	if s.client == nil {
		s.fallback(ctx, &req)
		return nil
	}

	maxLength := s.cfg.Inference.MaxLength
	text, err := s.client.Invoke(ctx,
		buildSystemPrompt(maxLength),
		buildUserPrompt(&req, payload, hits),
		inference.CallConfig{MaxLength: maxLength},
	)
	switch {
	case err == nil:
	case errors.Is(err, inference.ErrThrottled), ctx.Err() != nil:
		return err
	default:
		s.fallback(ctx, &req)
		return err
	}

	rec := s.memory.Record(fp, sit, payload.String(), text)
	s.publish(ctx, &req, text, notify.SourceInference, rec.ID)
	return nil
}

func (s *Service) fallback(ctx context.Context, req *model.AnalysisRequest) {
	if !s.hub.FallbackEnabled() {
		return
	}
	s.publish(ctx, req, notify.Fallback(req.EventType), notify.SourceFallback, "")
}

func (s *Service) publish(ctx context.Context, req *model.AnalysisRequest, text, source, recordID string) {
	s.hub.Publish(ctx, notify.Notification{
		Text:      text,
		EventType: req.EventType,
		Priority:  req.Priority,
		Source:    source,
		RecordID:  recordID,
	})
}

func (s *Service) sessionState() memory.SessionState {
	state := memory.SessionState{Cooldowns: s.orch.Cooldowns()}
	if id := s.classifier.Identity(); id.Known() {
		state.Identity = &id
	}
	return state
}

// Feedback records how a delivered line worked out.
func (s *Service) Feedback(ctx context.Context, recordID string, eff model.Effectiveness) error {
	if err := s.memory.MarkOutcome(recordID, eff); err != nil {
		return err
	}
	fields := []logger.Field{
		logger.String("record_id", recordID),
		logger.String("effectiveness", eff.String()),
	}
	if rec, ok := s.memory.Get(recordID); ok {
		fields = append(fields, logger.String("situation", rec.Situation.Type))
	}
	s.logger.Info(ctx, "feedback recorded", fields...)
	return nil
}

// Notifications returns up to limit recent notifications, newest first.
func (s *Service) Notifications(limit int) []notify.Notification {
	return s.hub.Recent(limit)
}

// Status returns a point-in-time view of every component.
func (s *Service) Status() Status {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	st := Status{
		Started:      started,
		Inference:    s.client != nil,
		Identity:     s.classifier.Identity(),
		Orchestrator: s.orch.Stats(),
		Memory:       s.memory.Stats(),
		Differ:       s.differ.Stats(),
		Trigger:      s.classifier.Stats(),
		Compress:     s.compressor.Stats(),
		Rounds:       s.history.Context(),
	}
	return st
}

// RefreshGauges publishes the queue depth and memory size gauges.
func (s *Service) RefreshGauges() {
	metrics.UpdateQueueDepth(s.orch.Stats().QueueDepth)
	metrics.UpdateMemoryRecords(s.memory.Stats().Size)
}

// GetStats returns a flat map of counters for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	st := s.Status()
	o := st.Orchestrator
	return map[string]interface{}{
		"started":               st.Started,
		"inference":             st.Inference,
		"snapshots":             st.Differ.Snapshots,
		"snapshotsOutOfOrder":   st.Differ.OutOfOrder,
		"eventsDetected":        st.Differ.Events,
		"detectorPanics":        st.Differ.Panics,
		"eventsEvaluated":       st.Trigger.Evaluated,
		"eventsAdmitted":        st.Trigger.Admitted,
		"eventsRejected":        st.Trigger.Rejected,
		"identityConfidence":    st.Identity.Confidence,
		"queueDepth":            o.QueueDepth,
		"inFlight":              o.InFlight != nil,
		"requestsEnqueued":      o.Enqueued,
		"requestsCompleted":     o.Completed,
		"requestsFailed":        o.Failed,
		"requestsThrottled":     o.Throttled,
		"requestsPreempted":     o.Preempted,
		"requestsEvicted":       o.Evicted,
		"rejectedCooldown":      o.Cooldown,
		"rejectedDuplicate":     o.Duplicate,
		"memoryRecords":         st.Memory.Size,
		"memoryHitRate":         st.Memory.HitRate,
		"compressionAvgRatio":   st.Compress.AvgRatio,
		"compressionBytesSaved": st.Compress.BytesSaved,
	}
}
