package registration

import (
	"context"
	"strings"

	"github.com/baechuer/campus-coord/internal/domain"
	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
)

type Service struct {
	store Store
	clock Clock
}

func New(store Store, clock Clock) *Service {
	return &Service{store: store, clock: clock}
}

type RegisterResult struct {
	ID         string
	EventTitle string
}

type Roster struct {
	Count         int                  `json:"count"`
	Registrations []domain.RosterEntry `json:"registrations"`
}

// Register creates an active registration for an approved event.
func (s *Service) Register(ctx context.Context, eventID string, p domain.Principal) (RegisterResult, error) {
	if strings.TrimSpace(p.SubjectID) == "" {
		return RegisterResult{}, domain.ErrTokenMissing()
	}

	var out RegisterResult
	err := s.store.WithTx(ctx, func(tx TxRepo) error {
		ev, err := tx.GetEventForShare(ctx, eventID)
		if err != nil {
			return err
		}
		if !ev.IsApproved() {
			return domain.ErrEventNotApproved()
		}

		existing, err := tx.FindActiveRegistration(ctx, ev.ID, p.SubjectID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyRegistered()
		}

		reg := domain.NewRegistration(ev.ID, p.SubjectID, s.clock.Now())
		if err := tx.InsertRegistration(ctx, reg); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, domain.RKRegistrationCreated, reg); err != nil {
			return err
		}

		out = RegisterResult{ID: reg.ID, EventTitle: ev.Title}
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}
	return out, nil
}

// Unregister cancels the caller's active registration. The row is kept.
func (s *Service) Unregister(ctx context.Context, eventID string, p domain.Principal) error {
	if strings.TrimSpace(p.SubjectID) == "" {
		return domain.ErrTokenMissing()
	}

	return s.store.WithTx(ctx, func(tx TxRepo) error {
		reg, err := tx.FindActiveRegistration(ctx, eventID, p.SubjectID)
		if err != nil {
			return err
		}
		if reg == nil {
			return domain.ErrNotRegistered()
		}
		reg.Cancel(s.clock.Now())
		if err := tx.CancelRegistration(ctx, reg); err != nil {
			return err
		}
		return s.emit(ctx, tx, domain.RKRegistrationCancelled, reg)
	})
}

// ListMine returns approved, non-deleted events the caller is actively registered for.
func (s *Service) ListMine(ctx context.Context, p domain.Principal) ([]*domain.Event, error) {
	if strings.TrimSpace(p.SubjectID) == "" {
		return nil, domain.ErrTokenMissing()
	}
	return s.store.ListRegisteredEvents(ctx, p.SubjectID)
}

// ListForEvent is restricted to the event's organizer and admins.
func (s *Service) ListForEvent(ctx context.Context, eventID string, p domain.Principal) (Roster, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return Roster{}, err
	}
	if !p.CanManage(ev.OrganizerID) {
		return Roster{}, domain.ErrForbidden("only the organizer or an admin can view registrations")
	}

	entries, err := s.store.ListRoster(ctx, ev.ID)
	if err != nil {
		return Roster{}, err
	}
	if entries == nil {
		entries = []domain.RosterEntry{}
	}
	return Roster{Count: len(entries), Registrations: entries}, nil
}

func (s *Service) emit(ctx context.Context, tx TxRepo, rk string, r *domain.Registration) error {
	msg, err := domain.NewOutboxMessage(rk, appCtx.GetRequestID(ctx), domain.RegistrationPayload{
		RegistrationID: r.ID,
		EventID:        r.EventID,
		UserID:         r.UserID,
		Status:         string(r.Status),
	}, s.clock.Now())
	if err != nil {
		return err
	}
	return tx.InsertOutbox(ctx, msg)
}
