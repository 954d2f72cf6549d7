package memory

import (
	"context"
	"sort"

	"github.com/baechuer/campus-coord/internal/application/approval"
	"github.com/baechuer/campus-coord/internal/domain"
)

func sortReservations(rs []*domain.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].Interval.Start.Equal(rs[j].Interval.Start) {
			return rs[i].Interval.Start.Before(rs[j].Interval.Start)
		}
		return rs[i].ID < rs[j].ID
	})
}

func sortEvents(es []*domain.Event) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].StartTime.Equal(es[j].StartTime) {
			return es[i].StartTime.Before(es[j].StartTime)
		}
		return es[i].ID < es[j].ID
	})
}

func sortRegistrations(rs []*domain.Registration) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].RegisteredAt.Equal(rs[j].RegisteredAt) {
			return rs[i].RegisteredAt.Before(rs[j].RegisteredAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

func (s *Store) ListReservationsByUser(_ context.Context, userID string) ([]*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Reservation, 0)
	for _, r := range s.reservations {
		if r.UserID == userID && r.Status == domain.ReservationConfirmed {
			out = append(out, cloneReservation(r))
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *Store) ListReservationsInRange(_ context.Context, resourceID string, iv domain.Interval) ([]*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Reservation, 0)
	for _, r := range s.reservations {
		if r.ResourceID == resourceID && r.Status == domain.ReservationConfirmed && r.Interval.Overlaps(iv) {
			out = append(out, cloneReservation(r))
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *Store) ListEvents(_ context.Context, f approval.EventFilter) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Event, 0)
	for _, e := range s.events {
		if e.IsDeleted() {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sortEvents(out)
	return out, nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok || e.IsDeleted() {
		return nil, domain.ErrEventNotFound()
	}
	return cloneEvent(e), nil
}

func (s *Store) ListRegisteredEvents(_ context.Context, userID string) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Event, 0)
	for _, r := range s.registrations {
		if r.UserID != userID || r.Status != domain.RegistrationActive {
			continue
		}
		e, ok := s.events[r.EventID]
		if !ok || e.IsDeleted() || !e.IsApproved() {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sortEvents(out)
	return out, nil
}

func (s *Store) ListRoster(_ context.Context, eventID string) ([]domain.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var regs []*domain.Registration
	for _, r := range s.registrations {
		if r.EventID == eventID && r.Status == domain.RegistrationActive {
			regs = append(regs, r)
		}
	}
	sortRegistrations(regs)

	out := make([]domain.RosterEntry, 0, len(regs))
	for _, r := range regs {
		entry := domain.RosterEntry{RegistrationID: r.ID, UserID: r.UserID, RegisteredAt: r.RegisteredAt}
		if u, ok := s.users[r.UserID]; ok {
			entry.UserName = u.Name
			entry.UserEmail = u.Email
		}
		out = append(out, entry)
	}
	return out, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := emailKey(u.Email)
	if _, taken := s.emails[key]; taken {
		return domain.ErrEmailAlreadyExists()
	}
	c := *u
	s.users[c.ID] = &c
	s.emails[key] = c.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[emailKey(email)]
	if !ok {
		return nil, domain.ErrUserNotFound()
	}
	c := *s.users[id]
	return &c, nil
}

// Resources

func (s *Store) ListResources(_ context.Context) ([]domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetResource(_ context.Context, id string) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, domain.ErrResourceNotFound()
	}
	return &r, nil
}

// UpsertResource is used by seeding and tests; resources have no public write path.
func (s *Store) UpsertResource(_ context.Context, r domain.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.resources[r.ID] = r
	return nil
}
