package approval

import (
	"context"
	"strings"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/logger"
	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
)

const defaultRejectReason = "Not specified"

type Service struct {
	store Store
	clock Clock
}

func New(store Store, clock Clock) *Service {
	return &Service{store: store, clock: clock}
}

type ReviewResult struct {
	EventID    string
	EventTitle string
	Reason     string
	Changed    bool
}

type DeleteResult struct {
	EventID                string
	CancelledRegistrations int
}

func canCreate(p domain.Principal) bool {
	return p.Role == domain.RoleOrganizer || p.Role == domain.RoleAdmin
}

// Create inserts a pending event owned by the caller.
func (s *Service) Create(ctx context.Context, p domain.Principal, d domain.EventDraft) (*domain.Event, error) {
	if !canCreate(p) {
		return nil, domain.ErrForbidden("only organizers and admins can create events")
	}
	ev, err := domain.NewPendingEvent(p.SubjectID, d, s.clock.Now())
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx TxRepo) error {
		if err := tx.InsertEvent(ctx, ev); err != nil {
			return err
		}
		return s.emit(ctx, tx, domain.RKEventCreated, ev, p.SubjectID)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Approve is idempotent: approving an approved event succeeds and publishes nothing.
func (s *Service) Approve(ctx context.Context, eventID string, p domain.Principal) (ReviewResult, error) {
	return s.review(ctx, eventID, p, func(ev *domain.Event) bool {
		return ev.Approve(p.SubjectID, s.clock.Now())
	}, domain.RKEventApproved)
}

// Reject stores the reason as advisory metadata; an empty reason reads "Not specified".
func (s *Service) Reject(ctx context.Context, eventID string, p domain.Principal, reason string) (ReviewResult, error) {
	reason = strings.TrimSpace(reason)
	res, err := s.review(ctx, eventID, p, func(ev *domain.Event) bool {
		return ev.Reject(p.SubjectID, reason, s.clock.Now())
	}, domain.RKEventRejected)
	if err != nil {
		return res, err
	}
	res.Reason = reason
	if res.Reason == "" {
		res.Reason = defaultRejectReason
	}
	return res, nil
}

func (s *Service) review(ctx context.Context, eventID string, p domain.Principal, apply func(*domain.Event) bool, rk string) (ReviewResult, error) {
	if !p.IsAdmin() {
		return ReviewResult{}, domain.ErrInsufficientRole(domain.RoleAdmin.String())
	}

	var out ReviewResult
	err := s.store.WithTx(ctx, func(tx TxRepo) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		changed := apply(ev)
		if err := tx.UpdateEventReview(ctx, ev); err != nil {
			return err
		}
		if changed {
			if err := s.emit(ctx, tx, rk, ev, p.SubjectID); err != nil {
				return err
			}
		}
		out = ReviewResult{EventID: ev.ID, EventTitle: ev.Title, Changed: changed}
		return nil
	})
	if err != nil {
		return ReviewResult{}, err
	}

	l := logger.FromContext(ctx, "approval")
	l.Info().
		Str("event_id", out.EventID).
		Str("routing_key", rk).
		Bool("changed", out.Changed).
		Str("reviewer", p.SubjectID).
		Msg("event reviewed")
	return out, nil
}

// Delete soft-deletes the event and cancels its active registrations in one transaction.
func (s *Service) Delete(ctx context.Context, eventID string, p domain.Principal) (DeleteResult, error) {
	var out DeleteResult
	err := s.store.WithTx(ctx, func(tx TxRepo) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if !p.CanManage(ev.OrganizerID) {
			return domain.ErrForbidden("only the organizer or an admin can delete this event")
		}

		now := s.clock.Now().UTC()
		cancelled, err := tx.CancelActiveRegistrations(ctx, ev.ID, now)
		if err != nil {
			return err
		}
		if err := tx.SoftDeleteEvent(ctx, ev.ID, now); err != nil {
			return err
		}
		ev.DeletedAt = &now

		for _, r := range cancelled {
			msg, err := domain.NewOutboxMessage(domain.RKRegistrationCancelled, appCtx.GetRequestID(ctx), domain.RegistrationPayload{
				RegistrationID: r.ID,
				EventID:        r.EventID,
				UserID:         r.UserID,
				Status:         string(domain.RegistrationCancelled),
			}, now)
			if err != nil {
				return err
			}
			if err := tx.InsertOutbox(ctx, msg); err != nil {
				return err
			}
		}
		if err := s.emit(ctx, tx, domain.RKEventDeleted, ev, p.SubjectID); err != nil {
			return err
		}

		out = DeleteResult{EventID: ev.ID, CancelledRegistrations: len(cancelled)}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return out, nil
}

// ListPending is the admin review queue.
func (s *Service) ListPending(ctx context.Context, p domain.Principal) ([]*domain.Event, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrInsufficientRole(domain.RoleAdmin.String())
	}
	status := domain.EventPending
	return s.store.ListEvents(ctx, EventFilter{Status: &status})
}

// List hides unapproved events from students.
func (s *Service) List(ctx context.Context, p domain.Principal) ([]*domain.Event, error) {
	f := EventFilter{}
	if p.Role == domain.RoleStudent || !p.Role.Valid() {
		status := domain.EventApproved
		f.Status = &status
	}
	return s.store.ListEvents(ctx, f)
}

func (s *Service) emit(ctx context.Context, tx TxRepo, rk string, ev *domain.Event, actorID string) error {
	msg, err := domain.NewOutboxMessage(rk, appCtx.GetRequestID(ctx), domain.NewEventPayload(ev, actorID), s.clock.Now())
	if err != nil {
		return err
	}
	return tx.InsertOutbox(ctx, msg)
}
