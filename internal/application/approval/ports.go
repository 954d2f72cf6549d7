package approval

import (
	"context"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type TxRepo interface {
	InsertEvent(ctx context.Context, e *domain.Event) error
	// GetEventForUpdate locks the event row. Deleted events are not found.
	GetEventForUpdate(ctx context.Context, id string) (*domain.Event, error)
	UpdateEventReview(ctx context.Context, e *domain.Event) error
	SoftDeleteEvent(ctx context.Context, id string, at time.Time) error
	// CancelActiveRegistrations returns the rows it cancelled.
	CancelActiveRegistrations(ctx context.Context, eventID string, at time.Time) ([]*domain.Registration, error)
	InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error
}

// EventFilter with a nil Status lists every non-deleted event.
type EventFilter struct {
	Status *domain.EventStatus
}

type Store interface {
	WithTx(ctx context.Context, fn func(TxRepo) error) error
	ListEvents(ctx context.Context, f EventFilter) ([]*domain.Event, error)
}
