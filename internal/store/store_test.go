package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/i474232898/short-term-forecast/internal/weather"
)

var testLoc = weather.Location{Address: "서울특별시 종로구", NX: 60, NY: 127}

func snapshotAt(id string, at time.Time) weather.Snapshot {
	return weather.Snapshot{
		ID:        id,
		Location:  testLoc,
		Reference: weather.Reference{Date: "20240101", Time: "0500"},
		FetchedAt: at.UTC(),
		Views: weather.Views{
			Current: []weather.Record{
				{Date: "2024년 01월 01일", Time: "06시 기준", Category: weather.CategoryAddress, Value: testLoc.Address},
				{Date: "20240101", Time: "0600", Category: weather.CategorySky, Value: "1"},
				{Date: "20240101", Time: "0600", Category: weather.CategoryTemperaturePerHour, Value: "-3"},
			},
			Dropped: 2,
		},
	}
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, maxHistory int, maxAge time.Duration, fn func(t *testing.T, s weather.Store, setNow func(time.Time))) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore(maxHistory, maxAge)
		fn(t, s, func(now time.Time) { s.now = func() time.Time { return now } })
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(":memory:", maxHistory, maxAge)
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
		defer s.Close()
		fn(t, s, func(now time.Time) { s.now = func() time.Time { return now } })
	})
}

func TestGetLatestEmpty(t *testing.T) {
	forEachStore(t, 0, 0, func(t *testing.T, s weather.Store, _ func(time.Time)) {
		if _, err := s.GetLatest(testLoc); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetRange(testLoc, time.Time{}, time.Now()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSaveAndGetLatest(t *testing.T) {
	forEachStore(t, 0, 0, func(t *testing.T, s weather.Store, _ func(time.Time)) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			if err := s.SaveSnapshot(snapshotAt(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("save: %v", err)
			}
		}

		latest, err := s.GetLatest(testLoc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if latest.ID != "s2" {
			t.Fatalf("expected s2, got %s", latest.ID)
		}
		if len(latest.Views.Current) != 3 || latest.Views.Current[0].Category != weather.CategoryAddress {
			t.Fatalf("views not preserved: %+v", latest.Views.Current)
		}
		if latest.Views.Dropped != 2 {
			t.Fatalf("expected dropped 2, got %d", latest.Views.Dropped)
		}
		if !latest.FetchedAt.Equal(base.Add(2 * time.Hour)) {
			t.Fatalf("unexpected fetchedAt %v", latest.FetchedAt)
		}
	})
}

func TestOtherLocationIsIsolated(t *testing.T) {
	forEachStore(t, 0, 0, func(t *testing.T, s weather.Store, _ func(time.Time)) {
		if err := s.SaveSnapshot(snapshotAt("a", time.Now())); err != nil {
			t.Fatalf("save: %v", err)
		}
		other := weather.Location{Address: "부산광역시 중구", NX: 97, NY: 74}
		if _, err := s.GetLatest(other); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRetentionByCount(t *testing.T) {
	forEachStore(t, 2, 0, func(t *testing.T, s weather.Store, _ func(time.Time)) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 4; i++ {
			if err := s.SaveSnapshot(snapshotAt(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatalf("save: %v", err)
			}
		}

		got, err := s.GetRange(testLoc, base, base.Add(time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].ID != "s2" || got[1].ID != "s3" {
			t.Fatalf("expected [s2 s3], got %v", ids(got))
		}
	})
}

func TestRetentionByAgeKeepsNewest(t *testing.T) {
	forEachStore(t, 0, time.Hour, func(t *testing.T, s weather.Store, setNow func(time.Time)) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		setNow(base.Add(10 * time.Hour))

		if err := s.SaveSnapshot(snapshotAt("old1", base)); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := s.SaveSnapshot(snapshotAt("old2", base.Add(time.Minute))); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := s.GetRange(testLoc, base, base.Add(time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "old2" {
			t.Fatalf("expected [old2], got %v", ids(got))
		}

		if err := s.SaveSnapshot(snapshotAt("fresh", base.Add(9*time.Hour+30*time.Minute))); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err = s.GetRange(testLoc, base, base.Add(24*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "fresh" {
			t.Fatalf("expected [fresh], got %v", ids(got))
		}
	})
}

func TestGetRangeBoundsInclusive(t *testing.T) {
	forEachStore(t, 0, 0, func(t *testing.T, s weather.Store, _ func(time.Time)) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			if err := s.SaveSnapshot(snapshotAt(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("save: %v", err)
			}
		}

		got, err := s.GetRange(testLoc, base.Add(time.Hour), base.Add(3*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 || got[0].ID != "s1" || got[2].ID != "s3" {
			t.Fatalf("expected [s1 s2 s3], got %v", ids(got))
		}

		if _, err := s.GetRange(testLoc, base.Add(10*time.Hour), base.Add(11*time.Hour)); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func ids(snaps []weather.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.ID
	}
	return out
}
