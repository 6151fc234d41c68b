package kanban

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobmate/autoapply-service/internal/events"
	"jobmate/autoapply-service/internal/model"
)

// Store is the slice of the reconciliation engine the service needs.
type Store interface {
	AppliedRecord(ctx context.Context, jobID string) (model.AppliedRecord, bool)
	PutApplied(ctx context.Context, rec model.AppliedRecord) error
}

// Service moves applied records between status tags.
type Service struct {
	store Store
	pub   events.Publisher
	now   func() time.Time
}

// NewService returns a configured Service. pub may be nil.
func NewService(store Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: store, pub: pub, now: time.Now}
}

// MoveCard transitions an applied record to a new status.
// Returns ErrNotFound if no applied record has that job_id.
// Returns *ValidationError if the status is unknown or the move is forbidden.
func (s *Service) MoveCard(ctx context.Context, jobID, newStatusStr string) (*model.AppliedRecord, error) {
	newStatus, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	rec, ok := s.store.AppliedRecord(ctx, jobID)
	if !ok {
		return nil, ErrNotFound
	}

	current, err := ParseStatus(rec.Status)
	if err != nil {
		// Records written before status tags existed count as APPLIED.
		current = StatusApplied
	}
	if !IsTransitionAllowed(current, newStatus) {
		return nil, &ValidationError{
			Msg: fmt.Sprintf("transition %s → %s is not allowed", current, newStatus),
		}
	}

	rec.Status = string(newStatus)
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.PutApplied(ctx, rec); err != nil {
		return nil, fmt.Errorf("moveCard save: %w", err)
	}

	if err := s.pub.Publish(ctx, events.Event{
		Type:  events.TypeStatusMoved,
		JobID: jobID,
		Data:  map[string]string{"from": string(current), "to": string(newStatus)},
	}); err != nil {
		slog.Warn("publish status move failed", "job_id", jobID, "err", err)
	}

	return &rec, nil
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when no applied record matches the job_id.
var ErrNotFound = errors.New("applied record not found")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
