package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/campus-coord/internal/application/approval"
	"github.com/baechuer/campus-coord/internal/application/registration"
	"github.com/baechuer/campus-coord/internal/application/reservation"
	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/infrastructure/outbox"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

var t0 = time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC)

func newStore(t *testing.T, lockTimeout time.Duration) *Store {
	t.Helper()
	s := New(lockTimeout, WithClock(func() time.Time { return t0 }))
	require.NoError(t, s.UpsertResource(context.Background(), domain.Resource{ID: "room-101", Name: "Room 101", Active: true}))
	require.NoError(t, s.UpsertResource(context.Background(), domain.Resource{ID: "old-lab", Name: "Old Lab", Active: false}))
	return s
}

func addUser(t *testing.T, s *Store, id string, role domain.Role) domain.Principal {
	t.Helper()
	u := &domain.User{ID: id, Name: "User " + id, Email: id + "@campus.edu", PasswordHash: "x", Role: role, CreatedAt: t0}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u.Principal()
}

func TestConcurrentReservations_ExactlyOneWins(t *testing.T) {
	s := newStore(t, time.Second)
	svc := reservation.New(s.Reservations(), &fakeClock{t0})
	ctx := context.Background()

	const n = 8
	users := make([]domain.Principal, n)
	for i := range users {
		users[i] = addUser(t, s, string(rune('a'+i)), domain.RoleStudent)
	}

	start := t0.Add(2 * time.Hour)
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, users[i], reservation.CreateCmd{
				ResourceID: "room-101",
				Start:      start.Add(time.Duration(i) * 10 * time.Minute),
				End:        start.Add(90 * time.Minute),
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, domain.Is(err, domain.ErrReservationConflict().Code), "unexpected: %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, s.Outbox().Records(), 1)
}

func TestLockResource_TimesOut(t *testing.T) {
	s := newStore(t, 50*time.Millisecond)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Reservations().WithTx(ctx, func(tx reservation.TxRepo) error {
			if err := tx.LockResource(ctx, "room-101"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := s.Reservations().WithTx(ctx, func(tx reservation.TxRepo) error {
		return tx.LockResource(ctx, "room-101")
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))

	t.Run("other_resource_not_blocked", func(t *testing.T) {
		require.NoError(t, s.UpsertResource(ctx, domain.Resource{ID: "room-102", Name: "Room 102", Active: true}))
		err := s.Reservations().WithTx(ctx, func(tx reservation.TxRepo) error {
			return tx.LockResource(ctx, "room-102")
		})
		assert.NoError(t, err)
	})

	close(release)
	require.NoError(t, <-done)

	t.Run("released_after_commit", func(t *testing.T) {
		err := s.Reservations().WithTx(ctx, func(tx reservation.TxRepo) error {
			return tx.LockResource(ctx, "room-101")
		})
		assert.NoError(t, err)
	})
}

func TestLockResource_CanceledContext(t *testing.T) {
	s := newStore(t, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Reservations().WithTx(ctx, func(tx reservation.TxRepo) error { return nil })
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
}

func TestLockResource_UnknownOrInactive(t *testing.T) {
	s := newStore(t, time.Second)
	ctx := context.Background()

	for _, id := range []string{"nope", "old-lab"} {
		err := s.Reservations().WithTx(ctx, func(tx reservation.TxRepo) error {
			return tx.LockResource(ctx, id)
		})
		assert.True(t, domain.Is(err, domain.ErrResourceNotFound().Code), id)
	}
}

func TestCommit_FailureAppliesNothing(t *testing.T) {
	s := newStore(t, time.Second)
	p := addUser(t, s, "u1", domain.RoleStudent)
	svc := reservation.New(s.Reservations(), &fakeClock{t0})
	ctx := context.Background()

	s.FailNextCommit(errors.New("disk full"))
	_, err := svc.Create(ctx, p, reservation.CreateCmd{ResourceID: "room-101", Start: t0, End: t0.Add(time.Hour)})
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))

	mine, err := s.ListReservationsByUser(ctx, p.SubjectID)
	require.NoError(t, err)
	assert.Empty(t, mine)
	assert.Empty(t, s.Outbox().Records())

	_, err = svc.Create(ctx, p, reservation.CreateCmd{ResourceID: "room-101", Start: t0, End: t0.Add(time.Hour)})
	assert.NoError(t, err, "fault is one-shot")
}

func TestInsertReservation_BackstopAndReferences(t *testing.T) {
	s := newStore(t, time.Second)
	p := addUser(t, s, "u1", domain.RoleStudent)
	ctx := context.Background()

	insert := func(userID string, start time.Time, eventID *string) error {
		iv, err := domain.NewInterval(start, start.Add(time.Hour))
		require.NoError(t, err)
		r, err := domain.NewReservation(userID, "room-101", iv, eventID, t0)
		require.NoError(t, err)
		return s.withTx(ctx, func(tx *txRepo) error { return tx.InsertReservation(ctx, r) })
	}

	require.NoError(t, insert(p.SubjectID, t0, nil))
	assert.True(t, domain.Is(insert(p.SubjectID, t0.Add(30*time.Minute), nil), domain.ErrReservationConflict().Code))
	assert.NoError(t, insert(p.SubjectID, t0.Add(time.Hour), nil), "touching intervals do not overlap")
	assert.True(t, domain.Is(insert("ghost", t0.Add(5*time.Hour), nil), domain.ErrUserNotFound().Code))

	missing := "no-such-event"
	assert.True(t, domain.Is(insert(p.SubjectID, t0.Add(6*time.Hour), &missing), domain.ErrEventNotFound().Code))
}

func TestEventAndRegistrationFlow(t *testing.T) {
	s := newStore(t, time.Second)
	ctx := context.Background()
	clock := &fakeClock{t0}

	org := addUser(t, s, "org", domain.RoleOrganizer)
	admin := addUser(t, s, "admin", domain.RoleAdmin)
	ann := addUser(t, s, "ann", domain.RoleStudent)
	bob := addUser(t, s, "bob", domain.RoleStudent)

	events := approval.New(s.Events(), clock)
	regs := registration.New(s.Registrations(), clock)

	ev, err := events.Create(ctx, org, domain.EventDraft{
		Title: "Chess club", Description: "Weekly games for all levels.", Venue: "Library",
		StartTime: t0.Add(48 * time.Hour), EndTime: t0.Add(50 * time.Hour),
	})
	require.NoError(t, err)

	_, err = events.Approve(ctx, ev.ID, admin)
	require.NoError(t, err)

	_, err = regs.Register(ctx, ev.ID, ann)
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Minute)
	_, err = regs.Register(ctx, ev.ID, bob)
	require.NoError(t, err)

	roster, err := regs.ListForEvent(ctx, ev.ID, org)
	require.NoError(t, err)
	require.Equal(t, 2, roster.Count)
	assert.Equal(t, "ann@campus.edu", roster.Registrations[0].UserEmail)

	mine, err := regs.ListMine(ctx, bob)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, ev.ID, mine[0].ID)

	require.NoError(t, regs.Unregister(ctx, ev.ID, bob))
	assert.True(t, domain.Is(regs.Unregister(ctx, ev.ID, bob), domain.ErrNotRegistered().Code))

	del, err := events.Delete(ctx, ev.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, del.CancelledRegistrations)

	_, err = s.GetEvent(ctx, ev.ID)
	assert.True(t, domain.Is(err, domain.ErrEventNotFound().Code))

	var keys []string
	for _, r := range s.Outbox().Records() {
		keys = append(keys, r.RoutingKey)
	}
	assert.Equal(t, []string{
		domain.RKEventCreated,
		domain.RKEventApproved,
		domain.RKRegistrationCreated,
		domain.RKRegistrationCreated,
		domain.RKRegistrationCancelled,
		domain.RKRegistrationCancelled,
		domain.RKEventDeleted,
	}, keys)
}

func TestConcurrentRegistrations_NoDuplicates(t *testing.T) {
	s := newStore(t, time.Second)
	ctx := context.Background()
	clock := &fakeClock{t0}
	org := addUser(t, s, "org", domain.RoleOrganizer)
	admin := addUser(t, s, "admin", domain.RoleAdmin)
	stu := addUser(t, s, "stu", domain.RoleStudent)

	events := approval.New(s.Events(), clock)
	ev, err := events.Create(ctx, org, domain.EventDraft{
		Title: "Hackathon", Description: "Twenty four hours of code.", Venue: "Hall B",
		StartTime: t0.Add(24 * time.Hour), EndTime: t0.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = events.Approve(ctx, ev.ID, admin)
	require.NoError(t, err)

	regs := registration.New(s.Registrations(), clock)
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := regs.Register(ctx, ev.ID, stu); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.True(t, domain.Is(err, domain.ErrAlreadyRegistered().Code))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestCreateUser_EmailCaseInsensitive(t *testing.T) {
	s := newStore(t, time.Second)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: "1", Email: "Ann@Campus.edu", Role: domain.RoleStudent}))

	err := s.CreateUser(ctx, &domain.User{ID: "2", Email: "ann@campus.EDU", Role: domain.RoleStudent})
	assert.True(t, domain.Is(err, domain.ErrEmailAlreadyExists().Code))

	u, err := s.GetUserByEmail(ctx, "ANN@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
}

func TestListResources_ActiveOnlySorted(t *testing.T) {
	s := newStore(t, time.Second)
	ctx := context.Background()
	require.NoError(t, s.UpsertResource(ctx, domain.Resource{ID: "a", Name: "Auditorium", Active: true}))

	got, err := s.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Auditorium", got[0].Name)
	assert.Equal(t, t0, got[0].CreatedAt)

	r, err := s.GetResource(ctx, "old-lab")
	require.NoError(t, err, "inactive resources are still readable by id")
	assert.False(t, r.Active)
}

type recordingPublisher struct{ keys []string }

func (p *recordingPublisher) Publish(_ context.Context, rk, _ string, _ []byte) error {
	p.keys = append(p.keys, rk)
	return nil
}

func TestOutbox_DrainedByRelay(t *testing.T) {
	s := newStore(t, time.Second)
	p := addUser(t, s, "u1", domain.RoleStudent)
	svc := reservation.New(s.Reservations(), &fakeClock{t0})
	ctx := context.Background()

	_, err := svc.Create(ctx, p, reservation.CreateCmd{ResourceID: "room-101", Start: t0, End: t0.Add(time.Hour)})
	require.NoError(t, err)

	pub := &recordingPublisher{}
	relay := outbox.NewRelay(s.Outbox(), pub, outbox.WithClock(func() time.Time { return t0 }))
	n, err := relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{domain.RKReservationConfirmed}, pub.keys)

	recs := s.Outbox().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "sent", recs[0].Status)

	n, err = relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
