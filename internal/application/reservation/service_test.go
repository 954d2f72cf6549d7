package reservation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/campus-coord/internal/domain"
)

// --- fakes ---

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

// memStore serializes transactions with one mutex, which is enough to model
// the per-resource lock for these tests.
type memStore struct {
	mu        sync.Mutex
	resources map[string]bool
	rows      []*domain.Reservation
	outbox    []domain.OutboxMessage
}

func newMemStore(resourceIDs ...string) *memStore {
	m := &memStore{resources: map[string]bool{}}
	for _, id := range resourceIDs {
		m.resources[id] = true
	}
	return m
}

type memTx struct {
	m      *memStore
	rows   []*domain.Reservation
	outbox []domain.OutboxMessage
}

func (m *memStore) WithTx(ctx context.Context, fn func(TxRepo) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows = append(m.rows, tx.rows...)
	m.outbox = append(m.outbox, tx.outbox...)
	return nil
}

func (m *memStore) ListReservationsByUser(ctx context.Context, userID string) ([]*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reservation
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	return out, nil
}

func (t *memTx) LockResource(ctx context.Context, id string) error {
	if !t.m.resources[id] {
		return domain.ErrResourceNotFound()
	}
	return nil
}

func (t *memTx) CountOverlapping(ctx context.Context, id string, iv domain.Interval) (int, error) {
	n := 0
	for _, r := range t.m.rows {
		if r.ResourceID == id && r.Status == domain.ReservationConfirmed && r.Interval.Overlaps(iv) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertReservation(ctx context.Context, r *domain.Reservation) error {
	t.rows = append(t.rows, r)
	return nil
}

func (t *memTx) InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	t.outbox = append(t.outbox, msg)
	return nil
}

type mockTx struct{ mock.Mock }

func (m *mockTx) LockResource(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockTx) CountOverlapping(ctx context.Context, id string, iv domain.Interval) (int, error) {
	args := m.Called(ctx, id, iv)
	return args.Int(0), args.Error(1)
}
func (m *mockTx) InsertReservation(ctx context.Context, r *domain.Reservation) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockTx) InsertOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockStore struct{ tx *mockTx }

func (s mockStore) WithTx(ctx context.Context, fn func(TxRepo) error) error { return fn(s.tx) }
func (s mockStore) ListReservationsByUser(ctx context.Context, userID string) ([]*domain.Reservation, error) {
	return nil, nil
}

// --- helpers ---

var (
	day     = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	student = domain.Principal{SubjectID: "s1", Role: domain.RoleStudent}
)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func newService(store Store) *Service {
	return New(store, fakeClock{t: day.Add(-24 * time.Hour)})
}

// --- tests ---

func TestCreate_OverlapExample(t *testing.T) {
	store := newMemStore("room-101")
	svc := newService(store)
	ctx := context.Background()

	a, err := svc.Create(ctx, student, CreateCmd{ResourceID: "room-101", Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConfirmed, a.Status)

	_, err = svc.Create(ctx, student, CreateCmd{ResourceID: "room-101", Start: at(11, 0), End: at(12, 0)})
	require.NoError(t, err, "touching endpoints must not conflict")

	_, err = svc.Create(ctx, student, CreateCmd{ResourceID: "room-101", Start: at(10, 30), End: at(10, 45)})
	assert.True(t, domain.Is(err, "reservation_conflict"))

	assert.Len(t, store.rows, 2)
	assert.Len(t, store.outbox, 2)
	assert.Equal(t, domain.RKReservationConfirmed, store.outbox[0].RoutingKey)
}

func TestCreate_OtherResourceDoesNotConflict(t *testing.T) {
	store := newMemStore("room-101", "room-102")
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, student, CreateCmd{ResourceID: "room-101", Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, student, CreateCmd{ResourceID: "room-102", Start: at(10, 0), End: at(11, 0)})
	assert.NoError(t, err)
}

func TestCreate_InvalidInterval(t *testing.T) {
	svc := newService(newMemStore("room-101"))

	_, err := svc.Create(context.Background(), student, CreateCmd{ResourceID: "room-101", Start: at(11, 0), End: at(11, 0)})
	assert.True(t, domain.Is(err, "invalid_interval"))
}

func TestCreate_UnknownResource(t *testing.T) {
	svc := newService(newMemStore())

	_, err := svc.Create(context.Background(), student, CreateCmd{ResourceID: "nope", Start: at(10, 0), End: at(11, 0)})
	assert.True(t, domain.Is(err, "resource_not_found"))
}

func TestCreate_ConcurrentOverlappingRequests_ExactlyOneWins(t *testing.T) {
	store := newMemStore("room-101")
	svc := newService(store)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), student, CreateCmd{ResourceID: "room-101", Start: at(10, 0), End: at(11, 0)})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case domain.Is(err, "reservation_conflict"):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestCreate_StoreFailurePropagates(t *testing.T) {
	tx := new(mockTx)
	storeErr := domain.ErrStoreUnavailable(errors.New("lock timeout"))
	tx.On("LockResource", mock.Anything, "room-101").Return(storeErr)

	svc := newService(mockStore{tx: tx})
	_, err := svc.Create(context.Background(), student, CreateCmd{ResourceID: "room-101", Start: at(10, 0), End: at(11, 0)})

	assert.True(t, domain.Is(err, "store_unavailable"))
	tx.AssertNotCalled(t, "CountOverlapping", mock.Anything, mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "InsertReservation", mock.Anything, mock.Anything)
}

func TestCreate_ConflictWritesNothing(t *testing.T) {
	tx := new(mockTx)
	tx.On("LockResource", mock.Anything, "room-101").Return(nil)
	tx.On("CountOverlapping", mock.Anything, "room-101", mock.Anything).Return(1, nil)

	svc := newService(mockStore{tx: tx})
	_, err := svc.Create(context.Background(), student, CreateCmd{ResourceID: "room-101", Start: at(10, 0), End: at(11, 0)})

	assert.True(t, domain.Is(err, "reservation_conflict"))
	tx.AssertNotCalled(t, "InsertReservation", mock.Anything, mock.Anything)
	tx.AssertNotCalled(t, "InsertOutbox", mock.Anything, mock.Anything)
}

func TestCreate_RequiresPrincipal(t *testing.T) {
	svc := newService(newMemStore("room-101"))
	_, err := svc.Create(context.Background(), domain.Principal{}, CreateCmd{ResourceID: "room-101", Start: at(10, 0), End: at(11, 0)})
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))
}

func TestListMine_OrderedByStart(t *testing.T) {
	store := newMemStore("room-101")
	svc := newService(store)
	ctx := context.Background()

	_, _ = svc.Create(ctx, student, CreateCmd{ResourceID: "room-101", Start: at(14, 0), End: at(15, 0)})
	_, _ = svc.Create(ctx, student, CreateCmd{ResourceID: "room-101", Start: at(9, 0), End: at(10, 0)})
	other := domain.Principal{SubjectID: "s2", Role: domain.RoleStudent}
	_, _ = svc.Create(ctx, other, CreateCmd{ResourceID: "room-101", Start: at(11, 0), End: at(12, 0)})

	mine, err := svc.ListMine(ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].Interval.Start.Before(mine[1].Interval.Start))
}
