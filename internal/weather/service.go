package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoStore is returned by reads on a Service created without a store.
var ErrNoStore = errors.New("no snapshot store configured")

// Service orchestrates fetching from the provider, transforming and persisting snapshots.
type Service struct {
	store    Store
	provider Provider
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewService creates a new Service. A nil logger disables logging.
func NewService(store Store, provider Provider, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		store:    store,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// Forecast fetches the forecast for loc as of now, transforms it into the
// two display views and stores the resulting snapshot.
func (s *Service) Forecast(ctx context.Context, loc Location, now time.Time) (Snapshot, error) {
	if s.provider == nil {
		return Snapshot{}, fmt.Errorf("no forecast provider configured")
	}

	ref, err := BaseDateTime(now)
	if err != nil {
		return Snapshot{}, err
	}

	s.log.Debugw("fetching forecast",
		"provider", s.provider.Name(), "location", loc.Key(), "baseDate", ref.Date, "baseTime", ref.Time)

	records, err := s.provider.Fetch(ctx, FetchRequest{
		BaseDate: ref.Date,
		BaseTime: ref.Time,
		NX:       loc.NX,
		NY:       loc.NY,
	})
	if err != nil {
		s.log.Warnw("forecast fetch failed", "location", loc.Key(), "error", err)
		return Snapshot{}, fmt.Errorf("fetch %s: %w", loc.Key(), err)
	}

	views, err := Transform(records, ref, loc.Address)
	if err != nil {
		return Snapshot{}, fmt.Errorf("transform %s: %w", loc.Key(), err)
	}
	if views.Dropped > 0 {
		s.log.Debugw("records dropped", "location", loc.Key(), "dropped", views.Dropped, "total", len(records))
	}

	snapshot := Snapshot{
		ID:        uuid.NewString(),
		Location:  loc,
		Reference: ref,
		FetchedAt: s.now().UTC(),
		Views:     views,
	}
	if s.store != nil {
		if err := s.store.SaveSnapshot(snapshot); err != nil {
			// The caller still gets the fresh views; only persistence failed.
			s.log.Errorw("failed to save snapshot", "location", loc.Key(), "error", err)
		}
	}
	return snapshot, nil
}

// FetchAndStore refreshes the stored snapshot for loc. Used by the scheduler.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) error {
	_, err := s.Forecast(ctx, loc, s.now())
	return err
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (Snapshot, error) {
	if s.store == nil {
		return Snapshot{}, ErrNoStore
	}
	return s.store.GetLatest(loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(loc Location, from, to time.Time) ([]Snapshot, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetRange(loc, from, to)
}
