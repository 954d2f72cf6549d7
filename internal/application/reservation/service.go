package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/logger"
	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
)

type Service struct {
	store Store
	clock Clock
}

func New(store Store, clock Clock) *Service {
	return &Service{store: store, clock: clock}
}

type CreateCmd struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	EventID    *string
}

// Create books a resource for [Start, End). The overlap check and the insert
// run under the resource lock, so two racing requests for overlapping slots
// cannot both succeed.
func (s *Service) Create(ctx context.Context, p domain.Principal, cmd CreateCmd) (*domain.Reservation, error) {
	if strings.TrimSpace(p.SubjectID) == "" {
		return nil, domain.ErrTokenMissing()
	}
	iv, err := domain.NewInterval(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	res, err := domain.NewReservation(p.SubjectID, cmd.ResourceID, iv, cmd.EventID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx TxRepo) error {
		if err := tx.LockResource(ctx, res.ResourceID); err != nil {
			return err
		}

		n, err := tx.CountOverlapping(ctx, res.ResourceID, iv)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrReservationConflict()
		}

		if err := tx.InsertReservation(ctx, res); err != nil {
			return err
		}

		payload := domain.ReservationPayload{
			ReservationID: res.ID,
			ResourceID:    res.ResourceID,
			UserID:        res.UserID,
			StartTime:     iv.Start,
			EndTime:       iv.End,
		}
		if res.EventID != nil {
			payload.EventID = *res.EventID
		}
		msg, err := domain.NewOutboxMessage(domain.RKReservationConfirmed, appCtx.GetRequestID(ctx), payload, res.CreatedAt)
		if err != nil {
			return err
		}
		return tx.InsertOutbox(ctx, msg)
	})
	if err != nil {
		if domain.Is(err, "reservation_conflict") {
			l := logger.FromContext(ctx, "reservation")
			l.Info().
				Str("resource_id", res.ResourceID).
				Time("start", iv.Start).
				Time("end", iv.End).
				Msg("reservation conflict")
		}
		return nil, err
	}
	return res, nil
}

// ListMine returns the caller's reservations ordered by start time.
func (s *Service) ListMine(ctx context.Context, p domain.Principal) ([]*domain.Reservation, error) {
	if strings.TrimSpace(p.SubjectID) == "" {
		return nil, domain.ErrTokenMissing()
	}
	return s.store.ListReservationsByUser(ctx, p.SubjectID)
}
