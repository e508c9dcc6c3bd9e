package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/short-term-forecast/internal/common"
	"github.com/i474232898/short-term-forecast/internal/weather/providers"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// LocationEntry is one tracked location. Either District names a row of the
// district table, or Label is given together with an explicit grid point.
type LocationEntry struct {
	District string `yaml:"district"`
	Label    string `yaml:"label"`
	NX       int    `yaml:"nx"`
	NY       int    `yaml:"ny"`
}

type locationsFile struct {
	Locations []LocationEntry `yaml:"locations"`
}

type AppConfig struct {
	KMAServiceKey string
	KMABaseURL    string
	KMANumOfRows  int

	HTTPTimeout time.Duration

	// FetchInterval controls how often tracked locations are refreshed.
	FetchInterval time.Duration

	// Outbound request budget for the KMA key.
	RateLimitRPS   float64
	RateLimitBurst int

	StoreDriver     string
	StoreDSN        string
	StoreMaxHistory int           // max number of snapshots per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	Port string

	GeocodingAPIKey string

	// Locations to track, from TRACKED_DISTRICTS followed by LOCATIONS_FILE.
	Locations []LocationEntry

	LogDevelopment bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.KMAServiceKey = os.Getenv("KMA_SERVICE_KEY")
	cfg.KMABaseURL = getenvDefault("KMA_BASE_URL", providers.DefaultKMABaseURL)
	cfg.KMANumOfRows = getenvInt("KMA_NUM_OF_ROWS", 1000)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "30m"); err != nil {
		return nil, err
	}

	cfg.RateLimitRPS = getenvFloat("RATE_LIMIT_RPS", 5)
	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", 5)

	cfg.StoreDriver = getenvDefault("STORE_DRIVER", DriverMemory)
	if !common.OneOf(cfg.StoreDriver, DriverMemory, DriverSQLite) {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", cfg.StoreDriver, DriverMemory, DriverSQLite)
	}
	cfg.StoreDSN = getenvDefault("STORE_DSN", "forecast.db")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 48) // 24h at 30-minute intervals
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.GeocodingAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.LogDevelopment = getenvBool("LOG_DEVELOPMENT", false)

	for _, name := range common.SplitNonEmpty(os.Getenv("TRACKED_DISTRICTS"), ",") {
		cfg.Locations = append(cfg.Locations, LocationEntry{District: name})
	}
	if path := os.Getenv("LOCATIONS_FILE"); path != "" {
		entries, err := loadLocationsFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Locations = append(cfg.Locations, entries...)
	}

	return cfg, nil
}

func loadLocationsFile(path string) ([]LocationEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read LOCATIONS_FILE %s: %w", path, err)
	}
	return parseLocations(data)
}

func parseLocations(data []byte) ([]LocationEntry, error) {
	var file locationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse locations: %w", err)
	}
	for i, entry := range file.Locations {
		if entry.District == "" && entry.Label == "" {
			return nil, fmt.Errorf("location %d: district or label is required", i)
		}
		if entry.District == "" && (entry.NX <= 0 || entry.NY <= 0) {
			return nil, fmt.Errorf("location %d (%s): nx and ny are required with a label", i, entry.Label)
		}
	}
	return file.Locations, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
