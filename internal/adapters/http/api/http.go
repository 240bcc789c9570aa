// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"
)

const (
	defaultRatePerSecond = 20
	defaultBurst         = 40
	defaultMaxBodyBytes  = 1 << 20
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	TelemetryDependencies
	FeedbackDependencies
	NotificationsProvider
	StatusProvider
}

// Server wires HTTP routes for the coaching API.
type Server struct {
	healthHandler        *HealthHandler
	statusHandler        *StatusHandler
	telemetryHandler     *TelemetryHandler
	feedbackHandler      *FeedbackHandler
	notificationsHandler *NotificationsHandler
}

// Option configures a Server.
type Option func(*options)

type options struct {
	rps          float64
	burst        int
	maxBodyBytes int64
}

// WithRateLimit bounds telemetry ingress to rps documents per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 && burst > 0 {
			o.rps, o.burst = rps, burst
		}
	}
}

// WithMaxBodyBytes caps the telemetry document size.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{rps: defaultRatePerSecond, burst: defaultBurst, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:        NewHealthHandler(),
		statusHandler:        NewStatusHandler(deps),
		telemetryHandler:     NewTelemetryHandler(deps, rate.NewLimiter(rate.Limit(o.rps), o.burst), o.maxBodyBytes),
		feedbackHandler:      NewFeedbackHandler(deps),
		notificationsHandler: NewNotificationsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statusHandler.HandleStats, "stats"))
	mux.HandleFunc("/gsi", MetricsMiddleware(s.telemetryHandler.HandlePostTelemetry, "gsi"))
	mux.HandleFunc("/feedback", MetricsMiddleware(s.feedbackHandler.HandlePostFeedback, "feedback"))
	mux.HandleFunc("/notifications", MetricsMiddleware(s.notificationsHandler.HandleGetNotifications, "notifications"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
