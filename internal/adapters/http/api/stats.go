package api

import (
	"encoding/json"
	"net/http"

	service "github.com/okian/clutch/internal/app"
)

// StatusProvider defines the interface for getting service state.
type StatusProvider interface {
	Status() service.Status
	GetStats() map[string]interface{}
}

// StatusHandler handles status and stats requests.
type StatusHandler struct {
	statusProvider StatusProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(statusProvider StatusProvider) *StatusHandler {
	return &StatusHandler{statusProvider: statusProvider}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statusProvider.Status())
}

// HandleStats handles GET /stats requests.
func (h *StatusHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	stats := h.statusProvider.GetStats()
	_ = json.NewEncoder(w).Encode(stats)
}
