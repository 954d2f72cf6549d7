package memory

import (
	"context"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

// op is one staged write. check runs against committed state and apply
// must not fail.
type op struct {
	check func() error
	apply func()
}

type txRepo struct {
	s     *Store
	held  map[string]struct{}
	order []string
	ops   []op
}

func (t *txRepo) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key, t.s.lockTimeout); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *txRepo) releaseAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
}

func (t *txRepo) stage(check func() error, apply func()) {
	t.ops = append(t.ops, op{check: check, apply: apply})
}

// commit runs every check before any apply, so a failed check leaves the
// store untouched. Ops within one transaction never depend on each other.
func (t *txRepo) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.ErrStoreUnavailable(err)
	}

	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		err := s.fault
		s.fault = nil
		return domain.ErrStoreUnavailable(err)
	}

	for _, o := range t.ops {
		if o.check == nil {
			continue
		}
		if err := o.check(); err != nil {
			return err
		}
	}
	for _, o := range t.ops {
		o.apply()
	}
	return nil
}

// Reservations

func resourceKey(id string) string { return "resource:" + id }
func eventKey(id string) string    { return "event:" + id }

func (t *txRepo) LockResource(ctx context.Context, resourceID string) error {
	t.s.mu.RLock()
	res, ok := t.s.resources[resourceID]
	t.s.mu.RUnlock()
	if !ok || !res.Active {
		return domain.ErrResourceNotFound()
	}
	return t.lock(ctx, resourceKey(resourceID))
}

func (t *txRepo) CountOverlapping(_ context.Context, resourceID string, iv domain.Interval) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.countOverlapping(resourceID, iv), nil
}

func (s *Store) countOverlapping(resourceID string, iv domain.Interval) int {
	n := 0
	for _, r := range s.reservations {
		if r.ResourceID == resourceID && r.Status == domain.ReservationConfirmed && r.Interval.Overlaps(iv) {
			n++
		}
	}
	return n
}

func (t *txRepo) InsertReservation(_ context.Context, r *domain.Reservation) error {
	row := cloneReservation(r)
	s := t.s
	t.stage(func() error {
		if _, ok := s.resources[row.ResourceID]; !ok {
			return domain.ErrResourceNotFound()
		}
		if _, ok := s.users[row.UserID]; !ok {
			return domain.ErrUserNotFound()
		}
		if row.EventID != nil {
			if _, ok := s.events[*row.EventID]; !ok {
				return domain.ErrEventNotFound()
			}
		}
		// same guarantee as the exclusion constraint in postgres
		if s.countOverlapping(row.ResourceID, row.Interval) > 0 {
			return domain.ErrReservationConflict()
		}
		return nil
	}, func() {
		s.reservations[row.ID] = row
	})
	return nil
}

// Events

func (t *txRepo) InsertEvent(_ context.Context, e *domain.Event) error {
	row := cloneEvent(e)
	s := t.s
	t.stage(func() error {
		if _, ok := s.users[row.OrganizerID]; !ok {
			return domain.ErrUserNotFound()
		}
		return nil
	}, func() {
		s.events[row.ID] = row
	})
	return nil
}

func (t *txRepo) getEventLocked(ctx context.Context, id string) (*domain.Event, error) {
	if err := t.lock(ctx, eventKey(id)); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	e, ok := t.s.events[id]
	if !ok || e.IsDeleted() {
		return nil, domain.ErrEventNotFound()
	}
	return cloneEvent(e), nil
}

func (t *txRepo) GetEventForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return t.getEventLocked(ctx, id)
}

// GetEventForShare takes the same exclusive lock; registrations on one event serialise.
func (t *txRepo) GetEventForShare(ctx context.Context, id string) (*domain.Event, error) {
	return t.getEventLocked(ctx, id)
}

func (t *txRepo) UpdateEventReview(_ context.Context, e *domain.Event) error {
	row := cloneEvent(e)
	s := t.s
	t.stage(func() error {
		cur, ok := s.events[row.ID]
		if !ok || cur.IsDeleted() {
			return domain.ErrEventNotFound()
		}
		return nil
	}, func() {
		next := cloneEvent(s.events[row.ID])
		next.Status = row.Status
		next.ReviewedBy = row.ReviewedBy
		next.ReviewedAt = row.ReviewedAt
		next.RejectionReason = row.RejectionReason
		s.events[row.ID] = next
	})
	return nil
}

func (t *txRepo) SoftDeleteEvent(_ context.Context, id string, at time.Time) error {
	s := t.s
	at = at.UTC()
	t.stage(func() error {
		cur, ok := s.events[id]
		if !ok || cur.IsDeleted() {
			return domain.ErrEventNotFound()
		}
		return nil
	}, func() {
		next := cloneEvent(s.events[id])
		next.DeletedAt = &at
		s.events[id] = next
	})
	return nil
}

// CancelActiveRegistrations relies on the caller holding the event lock, which
// every registration write also takes.
func (t *txRepo) CancelActiveRegistrations(ctx context.Context, eventID string, at time.Time) ([]*domain.Registration, error) {
	if err := t.lock(ctx, eventKey(eventID)); err != nil {
		return nil, err
	}

	t.s.mu.RLock()
	var cancelled []*domain.Registration
	for _, r := range t.s.registrations {
		if r.EventID == eventID && r.Status == domain.RegistrationActive {
			c := cloneRegistration(r)
			c.Cancel(at)
			cancelled = append(cancelled, c)
		}
	}
	t.s.mu.RUnlock()

	sortRegistrations(cancelled)
	s := t.s
	t.stage(nil, func() {
		for _, c := range cancelled {
			s.registrations[c.ID] = cloneRegistration(c)
		}
	})

	out := make([]*domain.Registration, 0, len(cancelled))
	for _, c := range cancelled {
		out = append(out, cloneRegistration(c))
	}
	return out, nil
}

// Registrations

func (t *txRepo) FindActiveRegistration(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	if err := t.lock(ctx, eventKey(eventID)); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if r := t.s.activeRegistration(eventID, userID); r != nil {
		return cloneRegistration(r), nil
	}
	return nil, nil
}

func (s *Store) activeRegistration(eventID, userID string) *domain.Registration {
	for _, r := range s.registrations {
		if r.EventID == eventID && r.UserID == userID && r.Status == domain.RegistrationActive {
			return r
		}
	}
	return nil
}

func (t *txRepo) InsertRegistration(_ context.Context, r *domain.Registration) error {
	row := cloneRegistration(r)
	s := t.s
	t.stage(func() error {
		if _, ok := s.events[row.EventID]; !ok {
			return domain.ErrEventNotFound()
		}
		if _, ok := s.users[row.UserID]; !ok {
			return domain.ErrUserNotFound()
		}
		if row.Status == domain.RegistrationActive && s.activeRegistration(row.EventID, row.UserID) != nil {
			return domain.ErrAlreadyRegistered()
		}
		return nil
	}, func() {
		s.registrations[row.ID] = row
	})
	return nil
}

func (t *txRepo) CancelRegistration(_ context.Context, r *domain.Registration) error {
	row := cloneRegistration(r)
	s := t.s
	t.stage(func() error {
		if _, ok := s.registrations[row.ID]; !ok {
			return domain.ErrNotRegistered()
		}
		return nil
	}, func() {
		next := cloneRegistration(s.registrations[row.ID])
		next.Status = row.Status
		next.CancelledAt = row.CancelledAt
		s.registrations[row.ID] = next
	})
	return nil
}

// Outbox

func (t *txRepo) InsertOutbox(_ context.Context, msg domain.OutboxMessage) error {
	s := t.s
	m := msg
	m.Body = append([]byte(nil), msg.Body...)
	t.stage(nil, func() {
		s.outbox = append(s.outbox, &outboxRow{
			msg:    m,
			status: statusPending,
			next:   m.CreatedAt,
		})
	})
	return nil
}
