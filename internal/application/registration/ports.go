package registration

import (
	"context"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type TxRepo interface {
	// GetEventForShare holds a shared lock on the event so it cannot be
	// rejected or deleted while the registration commits.
	GetEventForShare(ctx context.Context, id string) (*domain.Event, error)
	// FindActiveRegistration returns (nil, nil) when there is none.
	FindActiveRegistration(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	// InsertRegistration maps a uniqueness violation to ErrAlreadyRegistered.
	InsertRegistration(ctx context.Context, r *domain.Registration) error
	CancelRegistration(ctx context.Context, r *domain.Registration) error
	InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error
}

type Store interface {
	WithTx(ctx context.Context, fn func(TxRepo) error) error
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListRegisteredEvents(ctx context.Context, userID string) ([]*domain.Event, error)
	ListRoster(ctx context.Context, eventID string) ([]domain.RosterEntry, error)
}
