// Package notify delivers coaching lines to the presentation side.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
	cache "github.com/patrickmn/go-cache"
)

// Notification sources.
const (
	SourceInference = "inference"
	SourceMemory    = "memory"
	SourceFallback  = "fallback"
)

// Notification is one line of coaching.
type Notification struct {
	Text      string          `json:"text"`
	EventType model.EventKind `json:"event_type"`
	Priority  model.Priority  `json:"priority"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	RecordID  string          `json:"record_id,omitempty"`
}

// Sink receives published notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Hub fans notifications out to sinks, suppresses repeated text and keeps the
// most recent ones.
type Hub struct {
	mu     sync.RWMutex
	cfg    Config
	sinks  []Sink
	recent []Notification
	next   int
	seen   *cache.Cache
	logger logger.Logger
	now    func() time.Time
}

// New creates a Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		cfg:    DefaultConfig(),
		logger: logger.Get().Named("notify"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.seen = cache.New(h.cfg.DedupeWindow, 2*h.cfg.DedupeWindow)
	h.recent = make([]Notification, 0, h.cfg.RecentSize)
	return h
}

// FallbackEnabled reports whether canned lines replace failed inference.
func (h *Hub) FallbackEnabled() bool { return h.cfg.Fallback }

// Subscribe adds a sink.
func (h *Hub) Subscribe(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

// Publish delivers n to every sink and reports whether it was delivered. Text
// already published inside the dedupe window is dropped. Sink errors are
// logged and never returned.
func (h *Hub) Publish(ctx context.Context, n Notification) bool { //nolint:gocritic // hugeParam: notifications travel by value
	n.Text = strings.TrimSpace(n.Text)
	if n.Text == "" {
		metrics.RecordNotification("empty")
		return false
	}
	key := strings.ToLower(n.Text)
	if err := h.seen.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		metrics.RecordNotification("duplicate")
		h.logger.Debug(ctx, "duplicate notification suppressed", logger.String("event_type", n.EventType.String()))
		return false
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = h.now()
	}

	h.mu.Lock()
	if len(h.recent) < h.cfg.RecentSize {
		h.recent = append(h.recent, n)
	} else {
		h.recent[h.next] = n
	}
	h.next = (h.next + 1) % h.cfg.RecentSize
	sinks := append([]Sink(nil), h.sinks...)
	h.mu.Unlock()

	for _, s := range sinks {
		if err := s.Notify(ctx, n); err != nil {
			metrics.RecordErrorByComponent("notify", "sink_failed")
			h.logger.Warn(ctx, "notification sink failed", logger.Error(err))
		}
	}
	metrics.RecordNotification(n.Source)
	return true
}

// Recent returns up to limit notifications, newest first. A non-positive
// limit returns all of them.
func (h *Hub) Recent(limit int) []Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, h.recent[(h.next-i+n)%n])
	}
	return out
}

// LogSink writes notifications to a logger.
type LogSink struct {
	Logger logger.Logger
}

// Notify logs n.
func (s LogSink) Notify(ctx context.Context, n Notification) error { //nolint:gocritic // hugeParam: notifications travel by value
	s.Logger.Info(ctx, n.Text,
		logger.String("event_type", n.EventType.String()),
		logger.String("priority", n.Priority.String()),
		logger.String("source", n.Source))
	return nil
}
