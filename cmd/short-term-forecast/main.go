package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/short-term-forecast/internal/api/http"
	"github.com/i474232898/short-term-forecast/internal/config"
	"github.com/i474232898/short-term-forecast/internal/districts"
	"github.com/i474232898/short-term-forecast/internal/scheduler"
	"github.com/i474232898/short-term-forecast/internal/store"
	"github.com/i474232898/short-term-forecast/internal/weather"
	"github.com/i474232898/short-term-forecast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	snapshots, closeStore, err := newStore(cfg)
	if err != nil {
		sugar.Fatalw("failed to open store", "driver", cfg.StoreDriver, "error", err)
	}
	defer closeStore()

	// KMA provider with resilience (backoff + circuit breaker) under the key's request budget.
	if cfg.KMAServiceKey == "" {
		sugar.Warn("KMA_SERVICE_KEY is not set; every fetch will fail")
	}
	var provider weather.Provider = providers.NewKMAProvider(httpClient, cfg.KMAServiceKey, cfg.KMABaseURL, cfg.KMANumOfRows)
	provider = providers.NewRateLimitedProvider(provider, cfg.RateLimitRPS, cfg.RateLimitBurst)

	table, err := districts.Default()
	if err != nil {
		sugar.Fatalw("failed to load district table", "error", err)
	}
	resolver := districts.NewResolver(table, districts.GoogleGeocoder(cfg.GeocodingAPIKey))

	locations, err := trackedLocations(cfg.Locations, resolver)
	if err != nil {
		sugar.Fatalw("invalid tracked locations", "error", err)
	}

	// Core service orchestrating provider and store.
	service := weather.NewService(snapshots, provider, sugar.Named("service"))

	// Scheduler that periodically fetches and stores data.
	sched := scheduler.New(locations, cfg.FetchInterval, service, sugar)
	if err := sched.Start(); err != nil {
		sugar.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "short-term-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Forecast requests wait on the upstream, including retries.
		WriteTimeout: cfg.HTTPTimeout * 4,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "short-term-forecast",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, resolver)

	go func() {
		sugar.Infow("listening", "port", cfg.Port, "store", cfg.StoreDriver, "tracked", len(locations))
		if err := app.Listen(":" + cfg.Port); err != nil {
			sugar.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		sugar.Errorw("error during shutdown", "error", err)
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newStore(cfg *config.AppConfig) (weather.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := store.NewSQLiteStore(cfg.StoreDSN, cfg.StoreMaxHistory, cfg.StoreMaxAge)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge), func() {}, nil
	}
}

func trackedLocations(entries []config.LocationEntry, resolver *districts.Resolver) ([]weather.Location, error) {
	locs := make([]weather.Location, 0, len(entries))
	for _, entry := range entries {
		if entry.District == "" {
			locs = append(locs, weather.Location{Address: entry.Label, NX: entry.NX, NY: entry.NY})
			continue
		}
		loc, err := resolver.ResolveDistrict(entry.District)
		if err != nil {
			return nil, fmt.Errorf("tracked district %q: %w", entry.District, err)
		}
		if entry.Label != "" {
			loc.Address = entry.Label
		}
		locs = append(locs, loc)
	}
	return locs, nil
}
