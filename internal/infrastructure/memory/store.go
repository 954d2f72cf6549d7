// Package memory is the single-process store driver. It keeps the same
// locking and atomicity contract as the postgres driver: per-key locks held
// for the life of a transaction, and writes staged then applied all at once.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/campus-coord/internal/application/approval"
	"github.com/baechuer/campus-coord/internal/application/catalog"
	"github.com/baechuer/campus-coord/internal/application/identity"
	"github.com/baechuer/campus-coord/internal/application/registration"
	"github.com/baechuer/campus-coord/internal/application/reservation"
	"github.com/baechuer/campus-coord/internal/domain"
)

type Store struct {
	locks       *keyLocks
	lockTimeout time.Duration
	now         func() time.Time

	mu            sync.RWMutex
	users         map[string]*domain.User
	emails        map[string]string
	resources     map[string]domain.Resource
	events        map[string]*domain.Event
	reservations  map[string]*domain.Reservation
	registrations map[string]*domain.Registration
	outbox        []*outboxRow
	fault         error
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(lockTimeout time.Duration, opts ...Option) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	s := &Store{
		locks:         newKeyLocks(),
		lockTimeout:   lockTimeout,
		now:           time.Now,
		users:         make(map[string]*domain.User),
		emails:        make(map[string]string),
		resources:     make(map[string]domain.Resource),
		events:        make(map[string]*domain.Event),
		reservations:  make(map[string]*domain.Reservation),
		registrations: make(map[string]*domain.Registration),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FailNextCommit makes the next commit return err and apply nothing.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	s.fault = err
	s.mu.Unlock()
}

func (s *Store) withTx(ctx context.Context, fn func(*txRepo) error) error {
	if err := ctx.Err(); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	tx := &txRepo{s: s, held: make(map[string]struct{})}
	defer tx.releaseAll()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit(ctx)
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

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	return &c
}

func cloneReservation(r *domain.Reservation) *domain.Reservation {
	c := *r
	return &c
}

func cloneRegistration(r *domain.Registration) *domain.Registration {
	c := *r
	return &c
}
