package reservation

import (
	"context"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

type Clock interface {
	Now() time.Time
}

// TxRepo is the view of the store inside one reservation transaction.
type TxRepo interface {
	// LockResource takes the per-resource exclusive lock for the rest of the
	// transaction. Unknown resources yield ErrResourceNotFound; a lock wait past
	// the store's timeout yields ErrStoreUnavailable.
	LockResource(ctx context.Context, resourceID string) error
	CountOverlapping(ctx context.Context, resourceID string, iv domain.Interval) (int, error)
	InsertReservation(ctx context.Context, r *domain.Reservation) error
	InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error
}

type Store interface {
	WithTx(ctx context.Context, fn func(TxRepo) error) error
	ListReservationsByUser(ctx context.Context, userID string) ([]*domain.Reservation, error)
}
