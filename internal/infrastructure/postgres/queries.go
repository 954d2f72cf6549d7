package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/baechuer/campus-coord/internal/application/approval"
	"github.com/baechuer/campus-coord/internal/domain"
)

// Reads outside a transaction. Results are never nil slices.

func (s *Store) ListReservationsByUser(ctx context.Context, userID string) ([]*domain.Reservation, error) {
	return s.queryReservations(ctx, `
SELECT id, resource_id, user_id, event_id, start_time, end_time, status, created_at
FROM reservations WHERE user_id = $1 AND status = 'confirmed'
ORDER BY start_time, id`, userID)
}

func (s *Store) ListReservationsInRange(ctx context.Context, resourceID string, iv domain.Interval) ([]*domain.Reservation, error) {
	return s.queryReservations(ctx, `
SELECT id, resource_id, user_id, event_id, start_time, end_time, status, created_at
FROM reservations
WHERE resource_id = $1 AND status = 'confirmed' AND start_time < $3 AND end_time > $2
ORDER BY start_time, id`, resourceID, iv.Start, iv.End)
}

func (s *Store) queryReservations(ctx context.Context, q string, args ...any) ([]*domain.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]*domain.Reservation, 0)
	for rows.Next() {
		var r domain.Reservation
		var status string
		if err := rows.Scan(&r.ID, &r.ResourceID, &r.UserID, &r.EventID,
			&r.Interval.Start, &r.Interval.End, &status, &r.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		r.Status = domain.ReservationStatus(status)
		r.Interval.Start = r.Interval.Start.UTC()
		r.Interval.End = r.Interval.End.UTC()
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, &r)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) ListEvents(ctx context.Context, f approval.EventFilter) ([]*domain.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE deleted_at IS NULL`
	var args []any
	if f.Status != nil {
		q += ` AND status = $1`
		args = append(args, string(*f.Status))
	}
	q += ` ORDER BY start_time, id`
	return s.queryEvents(ctx, q, args...)
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEventNotFound()
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (s *Store) ListRegisteredEvents(ctx context.Context, userID string) ([]*domain.Event, error) {
	return s.queryEvents(ctx, `
SELECT e.id, e.title, e.description, e.organizer_id, e.start_time, e.end_time, e.venue, e.status,
	e.created_at, e.reviewed_by, e.reviewed_at, e.rejection_reason, e.deleted_at
FROM events e
JOIN registrations r ON r.event_id = e.id
WHERE r.user_id = $1 AND r.status = 'active' AND e.status = 'approved' AND e.deleted_at IS NULL
ORDER BY e.start_time, e.id`, userID)
}

func (s *Store) queryEvents(ctx context.Context, q string, args ...any) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) ListRoster(ctx context.Context, eventID string) ([]domain.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, u.id, u.name, u.email, r.registered_at
FROM registrations r
JOIN users u ON u.id = r.user_id
WHERE r.event_id = $1 AND r.status = 'active'
ORDER BY r.registered_at, r.id`, eventID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.RosterEntry, 0)
	for rows.Next() {
		var e domain.RosterEntry
		if err := rows.Scan(&e.RegistrationID, &e.UserID, &e.UserName, &e.UserEmail, &e.RegisteredAt); err != nil {
			return nil, mapErr(err)
		}
		e.RegisteredAt = e.RegisteredAt.UTC()
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, name, email, password_hash, role, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role.String(), u.CreatedAt,
	)
	return mapErr(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	var role string
	err := s.db.QueryRowContext(ctx, `
SELECT id, name, email, password_hash, role, created_at
FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound()
	}
	if err != nil {
		return nil, mapErr(err)
	}
	u.Role = domain.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// Resources

const resourceColumns = `id, name, category, capacity, location, is_active, created_at`

func scanResource(row rowScanner) (domain.Resource, error) {
	var r domain.Resource
	if err := row.Scan(&r.ID, &r.Name, &r.Category, &r.Capacity, &r.Location, &r.Active, &r.CreatedAt); err != nil {
		return domain.Resource{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (s *Store) ListResources(ctx context.Context) ([]domain.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE is_active ORDER BY name, id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]domain.Resource, 0)
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrResourceNotFound()
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

// UpsertResource is used by seeding and tests; resources have no public write path.
func (s *Store) UpsertResource(ctx context.Context, r domain.Resource) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO resources (id, name, category, capacity, location, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, category = EXCLUDED.category, capacity = EXCLUDED.capacity,
	location = EXCLUDED.location, is_active = EXCLUDED.is_active`,
		r.ID, r.Name, r.Category, r.Capacity, r.Location, r.Active, r.CreatedAt,
	)
	return mapErr(err)
}
