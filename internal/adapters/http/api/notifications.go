package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/clutch/internal/adapters/notify"
)

const maxNotifications = 200

// NotificationsProvider exposes recently delivered coaching lines.
type NotificationsProvider interface {
	Notifications(limit int) []notify.Notification
}

// NotificationsHandler handles notification history requests.
type NotificationsHandler struct {
	deps NotificationsProvider
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(deps NotificationsProvider) *NotificationsHandler {
	return &NotificationsHandler{deps: deps}
}

// HandleGetNotifications handles GET /notifications?limit=N requests.
// Notifications are returned newest first.
func (h *NotificationsHandler) HandleGetNotifications(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_notifications"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxNotifications {
			writeError(w, http.StatusBadRequest, "bad_request",
				wrapKind(op, ErrBadRequest, errors.New("limit must be between 1 and 200")))
			return
		}
		limit = n
	}
	items := h.deps.Notifications(limit)
	if items == nil {
		items = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}
