package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/short-term-forecast/internal/districts"
	"github.com/i474232898/short-term-forecast/internal/store"
	"github.com/i474232898/short-term-forecast/internal/weather"
)

// stubProvider returns one record per category for the requested slot and
// the slot three hours later, or err when set.
type stubProvider struct {
	err   error
	calls []weather.FetchRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(_ context.Context, req weather.FetchRequest) ([]weather.Record, error) {
	p.calls = append(p.calls, req)
	if p.err != nil {
		return nil, p.err
	}
	later := "2359"
	if t, _ := strconv.Atoi(req.BaseTime); t+300 < 2400 {
		later = strconv.Itoa(t + 300)
		for len(later) < 4 {
			later = "0" + later
		}
	}
	return []weather.Record{
		{Date: req.BaseDate, Time: req.BaseTime, Category: weather.CategoryTemperaturePerHour, Value: "12"},
		{Date: req.BaseDate, Time: req.BaseTime, Category: weather.CategorySky, Value: "1"},
		{Date: req.BaseDate, Time: later, Category: weather.CategoryTemperaturePerHour, Value: "15"},
		{Date: "99991231", Time: "0000", Category: weather.CategoryRainPercentage, Value: "30"},
	}, nil
}

func newTestApp(t *testing.T, provider weather.Provider) (*fiber.App, *store.MemoryStore) {
	t.Helper()

	table, err := districts.Default()
	if err != nil {
		t.Fatalf("load districts: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	memStore := store.NewMemoryStore(10, 0)
	svc := weather.NewService(memStore, provider, nil)
	RegisterRoutes(app, svc, districts.NewResolver(table, nil))
	return app, memStore
}

func doGet(t *testing.T, app *fiber.App, path string, query url.Values) (*http.Response, map[string]any) {
	t.Helper()

	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
	return resp, decoded
}

func TestForecastLocatorValidation(t *testing.T) {
	app, _ := newTestApp(t, &stubProvider{})

	cases := map[string]url.Values{
		"no locator":        {},
		"two locators":      {"district": {"서울특별시 중구"}, "q": {"seoul"}},
		"lat without lon":   {"lat": {"37.5"}},
		"latitude invalid":  {"lat": {"123"}, "lon": {"127"}},
		"longitude invalid": {"lat": {"37"}, "lon": {"abc"}},
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := doGet(t, app, "/api/v1/forecast", query)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
			}
			if body["error"] != true {
				t.Fatalf("expected error body, got %v", body)
			}
		})
	}
}

func TestForecastUnknownDistrict(t *testing.T) {
	app, _ := newTestApp(t, &stubProvider{})

	resp, _ := doGet(t, app, "/api/v1/forecast", url.Values{"district": {"서울특별시 없는구"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestForecastByDistrict(t *testing.T) {
	provider := &stubProvider{}
	app, memStore := newTestApp(t, provider)

	resp, body := doGet(t, app, "/api/v1/forecast", url.Values{"district": {"서울특별시 종로구"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %v", http.StatusOK, resp.StatusCode, body)
	}
	if len(provider.calls) != 1 || provider.calls[0].NX != 60 || provider.calls[0].NY != 127 {
		t.Fatalf("unexpected provider calls %+v", provider.calls)
	}

	current, ok := body["current"].([]any)
	if !ok || len(current) != 3 {
		t.Fatalf("expected header, sky and temperature in current view, got %v", body["current"])
	}
	header := current[0].(map[string]any)
	if header["category"] != "ADDRESS" || header["value"] != "서울특별시 종로구" {
		t.Fatalf("unexpected header %v", header)
	}
	if sky := current[1].(map[string]any); sky["category"] != "SKY" {
		t.Fatalf("expected SKY second, got %v", sky)
	}

	forecast, ok := body["forecast"].([]any)
	if !ok || len(forecast) == 0 {
		t.Fatalf("expected forecast view, got %v", body["forecast"])
	}
	if first := forecast[0].(map[string]any); first["category"] != "ADDRESS" {
		t.Fatalf("expected forecast to start with ADDRESS header, got %v", first)
	}

	loc := weather.Location{Address: "서울특별시 종로구", NX: 60, NY: 127}
	if _, err := memStore.GetLatest(loc); err != nil {
		t.Fatalf("expected snapshot to be stored: %v", err)
	}

	resp, body = doGet(t, app, "/api/v1/forecast/latest", url.Values{"district": {"서울특별시 종로구"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body["baseDate"] == "" || body["baseTime"] == "" {
		t.Fatalf("expected reference in latest response, got %v", body)
	}
}

func TestForecastFailureStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty data", weather.EmptyDataFailure(), http.StatusNotFound},
		{"api status", weather.APIStatusFailure("SERVICE_KEY_IS_NOT_REGISTERED_ERROR", "key"), http.StatusBadGateway},
		{"transport", weather.TransportFailure(errors.New("connection refused")), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := newTestApp(t, &stubProvider{err: tc.err})
			resp, body := doGet(t, app, "/api/v1/forecast", url.Values{"lat": {"37.5665"}, "lon": {"126.9780"}})
			if resp.StatusCode != tc.want {
				t.Fatalf("expected status %d, got %d: %v", tc.want, resp.StatusCode, body)
			}
		})
	}
}

func TestForecastOutsideGrid(t *testing.T) {
	provider := &stubProvider{}
	app, _ := newTestApp(t, provider)

	resp, body := doGet(t, app, "/api/v1/forecast", url.Values{"lat": {"40.7128"}, "lon": {"-74.0060"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d: %v", http.StatusNotFound, resp.StatusCode, body)
	}
	if len(provider.calls) != 0 {
		t.Fatalf("expected no upstream call, got %d", len(provider.calls))
	}
}

func TestLatestNotFound(t *testing.T) {
	app, _ := newTestApp(t, &stubProvider{})

	resp, _ := doGet(t, app, "/api/v1/forecast/latest", url.Values{"district": {"부산광역시 중구"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHistoryValidation(t *testing.T) {
	app, _ := newTestApp(t, &stubProvider{})

	// Missing range should return 400.
	resp, _ := doGet(t, app, "/api/v1/forecast/history", url.Values{"district": {"서울특별시 중구"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// to before from should also return 400.
	resp, _ = doGet(t, app, "/api/v1/forecast/history", url.Values{
		"district": {"서울특별시 중구"},
		"from":     {"2024-01-02T00:00:00Z"},
		"to":       {"2024-01-01T00:00:00Z"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHistoryReturnsStoredSnapshots(t *testing.T) {
	app, memStore := newTestApp(t, &stubProvider{})

	loc := weather.Location{Address: "서울특별시 중구", NX: 60, NY: 127}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := memStore.SaveSnapshot(weather.Snapshot{
			ID:        strconv.Itoa(i),
			Location:  loc,
			Reference: weather.Reference{Date: "20240101", Time: "0800"},
			FetchedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	resp, body := doGet(t, app, "/api/v1/forecast/history", url.Values{
		"district": {"서울특별시 중구"},
		"from":     {strconv.FormatInt(base.Unix(), 10)},
		"to":       {base.Add(time.Hour).Format(time.RFC3339)},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %v", http.StatusOK, resp.StatusCode, body)
	}
	snaps, ok := body["snapshots"].([]any)
	if !ok || len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %v", body["snapshots"])
	}
}

func TestDistrictsPrefix(t *testing.T) {
	app, _ := newTestApp(t, &stubProvider{})

	resp, body := doGet(t, app, "/api/v1/districts", url.Values{"prefix": {"경기도 수원시"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if body["count"] != float64(4) {
		t.Fatalf("expected 4 districts, got %v", body["count"])
	}
}

func TestQueryWithoutGeocoder(t *testing.T) {
	app, _ := newTestApp(t, &stubProvider{})

	resp, _ := doGet(t, app, "/api/v1/forecast", url.Values{"q": {"Gangnam Station"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}
