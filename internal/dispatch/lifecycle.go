package dispatch

import (
	"time"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
)

var transitions = map[model.Status][]model.Status{
	model.StatusPending:    {model.StatusVerified, model.StatusRejected},
	model.StatusVerified:   {model.StatusInProgress, model.StatusRejected},
	model.StatusInProgress: {model.StatusResolved},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to model.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from s in one step.
func AllowedTransitions(s model.Status) []model.Status {
	out := make([]model.Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// Transition moves r to requested and appends a history entry. Self
// transitions and unknown statuses are illegal; r is unchanged on error.
func Transition(r *model.Report, requested model.Status, actorID uuid.UUID, note string, now time.Time) error {
	if !CanTransition(r.Status, requested) {
		return &IllegalTransitionError{From: r.Status, To: requested}
	}
	r.Status = requested
	r.UpdatedAt = now
	r.History = append(r.History, model.HistoryEntry{
		Status:    requested,
		ChangedBy: actorID,
		Note:      note,
		Timestamp: now,
	})
	return nil
}
