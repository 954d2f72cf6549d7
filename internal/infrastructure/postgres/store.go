package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/baechuer/campus-coord/internal/application/approval"
	"github.com/baechuer/campus-coord/internal/application/catalog"
	"github.com/baechuer/campus-coord/internal/application/identity"
	"github.com/baechuer/campus-coord/internal/application/registration"
	"github.com/baechuer/campus-coord/internal/application/reservation"
)

// Store owns the pool. The per-service views below wrap it so each
// application package sees its own TxRepo type.
type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func New(db *sql.DB, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &Store{db: db, lockTimeout: lockTimeout}
}

func (s *Store) DB() *sql.DB { return s.db }

// withTx runs fn in a READ COMMITTED transaction. Every row lock taken inside
// is bounded by lockTimeout so a stuck holder surfaces as a store failure.
func (s *Store) withTx(ctx context.Context, fn func(*txRepo) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapErr(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	timeout := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
	if _, err = tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return mapErr(err)
	}

	if err = fn(&txRepo{tx: tx}); err != nil {
		return mapErr(err)
	}

	if err = tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *Store) Reservations() ReservationStore   { return ReservationStore{s} }
func (s *Store) Events() EventStore               { return EventStore{s} }
func (s *Store) Registrations() RegistrationStore { return RegistrationStore{s} }

type ReservationStore struct{ *Store }

func (r ReservationStore) WithTx(ctx context.Context, fn func(reservation.TxRepo) error) error {
	return r.withTx(ctx, func(tx *txRepo) error { return fn(tx) })
}

type EventStore struct{ *Store }

func (r EventStore) WithTx(ctx context.Context, fn func(approval.TxRepo) error) error {
	return r.withTx(ctx, func(tx *txRepo) error { return fn(tx) })
}

type RegistrationStore struct{ *Store }

func (r RegistrationStore) WithTx(ctx context.Context, fn func(registration.TxRepo) error) error {
	return r.withTx(ctx, func(tx *txRepo) error { return fn(tx) })
}

var (
	_ reservation.Store  = ReservationStore{}
	_ approval.Store     = EventStore{}
	_ registration.Store = RegistrationStore{}
	_ catalog.Store      = (*Store)(nil)
	_ identity.UserStore = (*Store)(nil)
)
