package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/short-term-forecast/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	location_key TEXT NOT NULL,
	address      TEXT NOT NULL,
	nx           INTEGER NOT NULL,
	ny           INTEGER NOT NULL,
	base_date    TEXT NOT NULL,
	base_time    TEXT NOT NULL,
	fetched_at   INTEGER NOT NULL,
	views        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_location_fetched
	ON snapshots (location_key, fetched_at);
`

// SQLiteStore persists snapshots in a sqlite database. Views are stored as JSON.
type SQLiteStore struct {
	db *sql.DB

	maxHistory int
	maxAge     time.Duration

	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dsn and applies the schema.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(dsn string, maxHistory int, maxAge time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer; ":memory:" is also per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:         db,
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot inserts the snapshot and prunes the location's history.
func (s *SQLiteStore) SaveSnapshot(snapshot weather.Snapshot) error {
	views, err := json.Marshal(snapshot.Views)
	if err != nil {
		return fmt.Errorf("encode views: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	key := snapshot.Location.Key()
	_, err = tx.Exec(
		`INSERT INTO snapshots (id, location_key, address, nx, ny, base_date, base_time, fetched_at, views)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID, key, snapshot.Location.Address, snapshot.Location.NX, snapshot.Location.NY,
		snapshot.Reference.Date, snapshot.Reference.Time, snapshot.FetchedAt.UnixNano(), string(views),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if s.maxHistory > 0 {
		_, err = tx.Exec(
			`DELETE FROM snapshots WHERE location_key = ? AND id NOT IN (
				SELECT id FROM snapshots WHERE location_key = ?
				ORDER BY fetched_at DESC LIMIT ?)`,
			key, key, s.maxHistory,
		)
		if err != nil {
			return fmt.Errorf("prune by count: %w", err)
		}
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge).UnixNano()
		// The newest snapshot survives even when it is older than the cutoff.
		_, err = tx.Exec(
			`DELETE FROM snapshots WHERE location_key = ? AND fetched_at < ? AND id NOT IN (
				SELECT id FROM snapshots WHERE location_key = ?
				ORDER BY fetched_at DESC LIMIT 1)`,
			key, cutoff, key,
		)
		if err != nil {
			return fmt.Errorf("prune by age: %w", err)
		}
	}

	return tx.Commit()
}

// GetLatest returns the most recent snapshot for a location.
func (s *SQLiteStore) GetLatest(loc weather.Location) (weather.Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, address, nx, ny, base_date, base_time, fetched_at, views
		 FROM snapshots WHERE location_key = ?
		 ORDER BY fetched_at DESC LIMIT 1`,
		loc.Key(),
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Snapshot{}, ErrNotFound
	}
	return snap, err
}

// GetRange returns all snapshots for a location between from and to (inclusive), oldest first.
func (s *SQLiteStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT id, address, nx, ny, base_date, base_time, fetched_at, views
		 FROM snapshots WHERE location_key = ? AND fetched_at BETWEEN ? AND ?
		 ORDER BY fetched_at ASC`,
		loc.Key(), from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var result []weather.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate range: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (weather.Snapshot, error) {
	var (
		snap      weather.Snapshot
		fetchedAt int64
		views     string
	)
	err := row.Scan(
		&snap.ID, &snap.Location.Address, &snap.Location.NX, &snap.Location.NY,
		&snap.Reference.Date, &snap.Reference.Time, &fetchedAt, &views,
	)
	if err != nil {
		return weather.Snapshot{}, err
	}
	if err := json.Unmarshal([]byte(views), &snap.Views); err != nil {
		return weather.Snapshot{}, fmt.Errorf("decode views for %s: %w", snap.ID, err)
	}
	snap.FetchedAt = time.Unix(0, fetchedAt).UTC()
	return snap, nil
}

var _ weather.Store = (*SQLiteStore)(nil)
