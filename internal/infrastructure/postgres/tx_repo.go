package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

const eventColumns = `id, title, description, organizer_id, start_time, end_time, venue, status,
	created_at, reviewed_by, reviewed_at, rejection_reason, deleted_at`

const registrationColumns = `id, event_id, user_id, status, registered_at, cancelled_at`

// txRepo implements the TxRepo of every application package.
type txRepo struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var status string
	if err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.OrganizerID, &e.StartTime, &e.EndTime, &e.Venue, &status,
		&e.CreatedAt, &e.ReviewedBy, &e.ReviewedAt, &e.RejectionReason, &e.DeletedAt,
	); err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.ReviewedAt = utcPtr(e.ReviewedAt)
	e.DeletedAt = utcPtr(e.DeletedAt)
	return &e, nil
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var r domain.Registration
	var status string
	if err := row.Scan(&r.ID, &r.EventID, &r.UserID, &status, &r.RegisteredAt, &r.CancelledAt); err != nil {
		return nil, err
	}
	r.Status = domain.RegistrationStatus(status)
	r.RegisteredAt = r.RegisteredAt.UTC()
	r.CancelledAt = utcPtr(r.CancelledAt)
	return &r, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Reservations

// LockResource serialises writers per resource. Inactive resources cannot be booked.
func (r *txRepo) LockResource(ctx context.Context, resourceID string) error {
	var id string
	err := r.tx.QueryRowContext(ctx,
		`SELECT id FROM resources WHERE id = $1 AND is_active FOR UPDATE`, resourceID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrResourceNotFound()
	}
	return mapErr(err)
}

func (r *txRepo) CountOverlapping(ctx context.Context, resourceID string, iv domain.Interval) (int, error) {
	var n int
	err := r.tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM reservations
WHERE resource_id = $1 AND status = 'confirmed' AND start_time < $3 AND end_time > $2`,
		resourceID, iv.Start, iv.End,
	).Scan(&n)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *txRepo) InsertReservation(ctx context.Context, res *domain.Reservation) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO reservations (id, resource_id, user_id, event_id, start_time, end_time, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.ResourceID, res.UserID, res.EventID, res.Interval.Start, res.Interval.End, string(res.Status), res.CreatedAt,
	)
	return mapErr(err)
}

// Events

func (r *txRepo) InsertEvent(ctx context.Context, e *domain.Event) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO events (id, title, description, organizer_id, start_time, end_time, venue, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Title, e.Description, e.OrganizerID, e.StartTime, e.EndTime, e.Venue, string(e.Status), e.CreatedAt,
	)
	return mapErr(err)
}

func (r *txRepo) getEvent(ctx context.Context, id, lock string) (*domain.Event, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL `+lock, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEventNotFound()
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (r *txRepo) GetEventForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.getEvent(ctx, id, "FOR UPDATE")
}

func (r *txRepo) GetEventForShare(ctx context.Context, id string) (*domain.Event, error) {
	return r.getEvent(ctx, id, "FOR SHARE")
}

func (r *txRepo) UpdateEventReview(ctx context.Context, e *domain.Event) error {
	res, err := r.tx.ExecContext(ctx, `
UPDATE events SET status = $2, reviewed_by = $3, reviewed_at = $4, rejection_reason = $5
WHERE id = $1 AND deleted_at IS NULL`,
		e.ID, string(e.Status), e.ReviewedBy, e.ReviewedAt, e.RejectionReason,
	)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res, domain.ErrEventNotFound)
}

func (r *txRepo) SoftDeleteEvent(ctx context.Context, id string, at time.Time) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE events SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res, domain.ErrEventNotFound)
}

func (r *txRepo) CancelActiveRegistrations(ctx context.Context, eventID string, at time.Time) ([]*domain.Registration, error) {
	rows, err := r.tx.QueryContext(ctx, `
UPDATE registrations SET status = 'cancelled', cancelled_at = $2
WHERE event_id = $1 AND status = 'active'
RETURNING `+registrationColumns, eventID, at)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, reg)
	}
	return out, mapErr(rows.Err())
}

// Registrations

func (r *txRepo) FindActiveRegistration(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	row := r.tx.QueryRowContext(ctx, `
SELECT `+registrationColumns+` FROM registrations
WHERE event_id = $1 AND user_id = $2 AND status = 'active'
FOR UPDATE`, eventID, userID)
	reg, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return reg, nil
}

func (r *txRepo) InsertRegistration(ctx context.Context, reg *domain.Registration) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO registrations (id, event_id, user_id, status, registered_at)
VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, reg.EventID, reg.UserID, string(reg.Status), reg.RegisteredAt,
	)
	return mapErr(err)
}

func (r *txRepo) CancelRegistration(ctx context.Context, reg *domain.Registration) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE registrations SET status = $2, cancelled_at = $3 WHERE id = $1`,
		reg.ID, string(reg.Status), reg.CancelledAt,
	)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res, domain.ErrNotRegistered)
}

// InsertOutbox sends the body as text; lib/pq would encode []byte as bytea.
func (r *txRepo) InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO outbox (message_id, routing_key, body, status, next_retry_at, created_at)
VALUES ($1, $2, $3::jsonb, 'pending', $4, $4)`,
		msg.MessageID, msg.RoutingKey, string(msg.Body), msg.CreatedAt,
	)
	return mapErr(err)
}

func expectOne(res sql.Result, notFound func() *domain.Error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return notFound()
	}
	return nil
}
