package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	service "github.com/okian/clutch/internal/app"
	"github.com/okian/clutch/internal/domain/gsi"
	"golang.org/x/time/rate"
)

// TelemetryDependencies defines the interface for telemetry ingestion.
type TelemetryDependencies interface {
	Ingest(ctx context.Context, body []byte, receivedAt time.Time) (service.IngestResult, error)
}

// TelemetryHandler handles game state documents.
type TelemetryHandler struct {
	deps    TelemetryDependencies
	limiter *rate.Limiter
	maxBody int64
}

// NewTelemetryHandler creates a new telemetry handler.
func NewTelemetryHandler(deps TelemetryDependencies, limiter *rate.Limiter, maxBody int64) *TelemetryHandler {
	return &TelemetryHandler{deps: deps, limiter: limiter, maxBody: maxBody}
}

// HandlePostTelemetry handles POST /gsi requests.
func (h *TelemetryHandler) HandlePostTelemetry(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_gsi"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", wrapKind(op, ErrRateLimited, nil))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", wrapKind(op, ErrBodyTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Ingest(r.Context(), body, time.Now())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, gsi.ErrMalformedDocument):
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
