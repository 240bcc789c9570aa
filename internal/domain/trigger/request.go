package trigger

import (
	"github.com/google/uuid"
	"github.com/okian/clutch/internal/domain/model"
)

// NewRequest turns an admitted event into an AnalysisRequest.
func NewRequest(ev model.DetectedEvent, snap model.Snapshot, d Decision) model.AnalysisRequest {
	return model.AnalysisRequest{
		ID:               uuid.NewString(),
		EventType:        ev.Kind,
		Priority:         ev.Priority,
		Event:            ev,
		Snapshot:         snap,
		ClassifierReason: d.Reason,
		Confidence:       d.Confidence,
		EnqueuedAt:       ev.ObservedAt,
	}
}
