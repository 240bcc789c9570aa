package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/clutch/internal/domain/memory"
	"github.com/okian/clutch/internal/domain/model"
)

// FeedbackDependencies defines the interface for outcome feedback.
type FeedbackDependencies interface {
	Feedback(ctx context.Context, recordID string, eff model.Effectiveness) error
}

// feedbackRequest is the body of POST /feedback.
type feedbackRequest struct {
	RecordID      string `json:"record_id"`
	Effectiveness string `json:"effectiveness"`
}

type ackResponse struct {
	Status string `json:"status"`
}

// FeedbackHandler handles feedback requests.
type FeedbackHandler struct {
	deps FeedbackDependencies
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(deps FeedbackDependencies) *FeedbackHandler {
	return &FeedbackHandler{deps: deps}
}

// HandlePostFeedback handles POST /feedback requests.
func (h *FeedbackHandler) HandlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.RecordID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("missing record_id")))
		return
	}
	eff, err := model.ParseEffectiveness(req.Effectiveness)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	err = h.deps.Feedback(r.Context(), req.RecordID, eff)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ackResponse{Status: "recorded"})
	case errors.Is(err, memory.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, memory.ErrOutcomeAlreadySet):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, memory.ErrInvalidEffectiveness):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
