package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/short-term-forecast/internal/weather"
)

const fetchTimeout = 30 * time.Second

// Refresher is the part of weather.Service the scheduler drives.
type Refresher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) error
}

// Scheduler periodically refreshes forecasts for the tracked locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	locations []weather.Location
	interval  time.Duration
	log       *zap.SugaredLogger
}

// New creates a new Scheduler. Jobs run on KST so logs line up with forecast slots.
func New(locations []weather.Location, interval time.Duration, service Refresher, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(weather.KST),
		service:   service,
		locations: locations,
		interval:  interval,
		log:       log.Named("scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.log.Info("no locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() { s.RunOnce() })
	if err != nil {
		return err
	}

	s.log.Infow("scheduler started", "locations", len(s.locations), "everyMinutes", minutes)
	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every tracked location concurrently and returns the
// number of failed refreshes.
func (s *Scheduler) RunOnce() int {
	s.log.Debug("running forecast fetch job")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, loc := range s.locations {
		wg.Add(1)
		go func(loc weather.Location) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()

			if err := s.service.FetchAndStore(ctx, loc); err != nil {
				s.log.Warnw("fetch failed", "location", loc.Key(), "kind", weather.FailureKindOf(err).String(), "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(loc)
	}
	wg.Wait()

	s.log.Infow("completed forecast fetch job", "locations", len(s.locations), "failed", failed)
	return failed
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
