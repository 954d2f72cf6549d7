package catalog

import (
	"context"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/campus-coord/internal/domain"
)

const cacheKeyResources = "catalog:resources:v1"

type Store interface {
	ListResources(ctx context.Context) ([]domain.Resource, error)
	GetResource(ctx context.Context, id string) (*domain.Resource, error)
	// ListReservationsInRange returns confirmed reservations overlapping iv, ordered by start.
	ListReservationsInRange(ctx context.Context, resourceID string, iv domain.Interval) ([]*domain.Reservation, error)
}

// Cache holds JSON values. Only the resource catalog is cached; reservation
// state always comes from the store.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Service struct {
	store Store
	cache Cache
	ttl   time.Duration
	loc   *time.Location
}

func New(store Store, cache Cache, ttl time.Duration, loc *time.Location) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, cache: cache, ttl: ttl, loc: loc}
}

type Availability struct {
	BookedSlots      []string `json:"booked_slots"`
	UnavailableSlots []string `json:"unavailable_slots"`
}

func (s *Service) ListResources(ctx context.Context) ([]domain.Resource, error) {
	if s.cache != nil {
		var cached []domain.Resource
		found, err := s.cache.Get(ctx, cacheKeyResources, &cached)
		if err != nil {
			zlog.Warn().Err(err).Str("key", cacheKeyResources).Msg("cache get failed")
		} else if found {
			return cached, nil
		}
	}

	list, err := s.store.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Resource{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKeyResources, list, s.ttl); err != nil {
			zlog.Warn().Err(err).Str("key", cacheKeyResources).Msg("cache set failed")
		}
	}
	return list, nil
}

// InvalidateResources drops the cached catalog.
func (s *Service) InvalidateResources(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cacheKeyResources)
}

// Availability lists the booked slots of one campus-local day as "HH:MM-HH:MM".
// Reservations that cross midnight are clipped to the day.
func (s *Service) Availability(ctx context.Context, resourceID, date string) (Availability, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), s.loc)
	if err != nil {
		return Availability{}, domain.ErrInvalidField("date", "expected YYYY-MM-DD")
	}
	iv, err := domain.NewInterval(day, day.AddDate(0, 0, 1))
	if err != nil {
		return Availability{}, err
	}

	if _, err := s.store.GetResource(ctx, resourceID); err != nil {
		return Availability{}, err
	}
	rows, err := s.store.ListReservationsInRange(ctx, resourceID, iv)
	if err != nil {
		return Availability{}, err
	}

	out := Availability{BookedSlots: make([]string, 0, len(rows)), UnavailableSlots: []string{}}
	for _, r := range rows {
		start, end := r.Interval.Start, r.Interval.End
		if start.Before(iv.Start) {
			start = iv.Start
		}
		endLabel := end.In(s.loc).Format("15:04")
		if !end.Before(iv.End) {
			endLabel = "24:00"
		}
		out.BookedSlots = append(out.BookedSlots, start.In(s.loc).Format("15:04")+"-"+endLabel)
	}
	return out, nil
}
