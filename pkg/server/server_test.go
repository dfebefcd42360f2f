package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeGROOVE-dev/clima/pkg/gazetteer"
	"github.com/codeGROOVE-dev/clima/pkg/timezone"
	"github.com/codeGROOVE-dev/clima/pkg/weather"
)

// fakeProvider records calls and returns canned responses.
type fakeProvider struct {
	err     error
	body    string
	city    string
	country string
	query   string
	calls   int
}

func (f *fakeProvider) Current(_ context.Context, city, country string) (json.RawMessage, error) {
	f.calls++
	f.city, f.country = city, country
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

func (f *fakeProvider) Forecast(_ context.Context, query string) (json.RawMessage, error) {
	f.calls++
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

type fakeResolver struct {
	err  error
	snap timezone.Snapshot
}

func (f *fakeResolver) Lookup(float64, float64) (timezone.Snapshot, error) {
	return f.snap, f.err
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string, int) ([]gazetteer.City, error) {
	return nil, errors.New("dataset download failed")
}

var testCities = []gazetteer.City{
	{ID: 3936456, Name: "Lima", Country: "PE"},
	{ID: 146268, Name: "Limassol", Country: "CY"},
	{ID: 3936451, Name: "Lima Province", Country: "PE"},
	{ID: 4517009, Name: "Lima", State: "OH", Country: "US"},
	{ID: 2988507, Name: "Paris", Country: "FR"},
	{ID: 2988506, Name: "Paris", Country: "FR"},
}

func newTestServer(t *testing.T, provider WeatherProvider, zones ZoneResolver, opts ...Option) http.Handler {
	t.Helper()
	searcher := gazetteer.NewSearcher(gazetteer.NewStaticTable(testCities), time.Minute, nil)
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(provider, searcher, zones, opts...).Handler()
}

func get(t *testing.T, h http.Handler, target string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestWelcomeAndHealth(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, &fakeResolver{})

	resp := get(t, h, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, Welcome, readBody(t, resp))

	resp = get(t, h, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", readBody(t, resp))

	resp = get(t, h, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(t, &fakeProvider{body: `{}`}, &fakeResolver{})

	resp := get(t, h, "/api/weather")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	other := get(t, h, "/api/weather")
	assert.NotEqual(t, resp.Header.Get("X-Request-ID"), other.Header.Get("X-Request-ID"))
}

func TestWeather(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantCity    string
		wantCountry string
	}{
		{"defaults", "/api/weather", "Lima", "PE"},
		{"explicit", "/api/weather?city=San+Jos%C3%A9&country=CR", "San José", "CR"},
		{"country default only", "/api/weather?city=Cusco", "Cusco", "PE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{body: `{"name":"x","cod":200}`}
			resp := get(t, newTestServer(t, p, &fakeResolver{}), tt.target)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.JSONEq(t, p.body, readBody(t, resp))
			assert.Equal(t, tt.wantCity, p.city)
			assert.Equal(t, tt.wantCountry, p.country)
		})
	}
}

func TestWeatherErrors(t *testing.T) {
	tests := []struct {
		err        error
		name       string
		target     string
		wantCode   string
		wantError  string
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "empty city",
			target:     "/api/weather?city=&country=PE",
			wantStatus: http.StatusBadRequest,
			wantCode:   codeMissingLocation,
			wantError:  "City and country are required",
		},
		{
			name:       "missing key",
			target:     "/api/weather",
			err:        weather.ErrMissingAPIKey,
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeMissingAPIKey,
			wantError:  "API key is not defined",
			wantCalls:  1,
		},
		{
			name:       "upstream",
			target:     "/api/weather",
			err:        &weather.UpstreamError{Endpoint: "weather", StatusCode: 404, Message: "city not found"},
			wantStatus: http.StatusBadGateway,
			wantCode:   codeUpstream,
			wantError:  "Failed to fetch weather data",
			wantCalls:  1,
		},
		{
			name:       "unexpected",
			target:     "/api/weather",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeInternalError,
			wantError:  "Failed to fetch weather data",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{err: tt.err}
			resp := get(t, newTestServer(t, p, &fakeResolver{}), tt.target)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			e := decodeError(t, resp)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantError, e.Error)
			assert.Equal(t, tt.wantCalls, p.calls)
		})
	}
}

func TestForecast(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantQuery string
	}{
		{"q", "/api/forecast?q=Paris", "Paris"},
		{"city and country", "/api/forecast?city=Paris&country=FR", "Paris,FR"},
		{"defaults", "/api/forecast", "Lima,PE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{body: `{"list":[]}`}
			resp := get(t, newTestServer(t, p, &fakeResolver{}), tt.target)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantQuery, p.query)
		})
	}

	p := &fakeProvider{}
	resp := get(t, newTestServer(t, p, &fakeResolver{}), "/api/forecast?q=")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, p.calls)

	p = &fakeProvider{err: &weather.UpstreamError{Endpoint: "forecast"}}
	resp = get(t, newTestServer(t, p, &fakeResolver{}), "/api/forecast?q=Paris")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Failed to fetch forecast data", decodeError(t, resp).Error)
}

func TestWeatherThroughClient(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Lima,PE" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"Lima","cod":200}`))
	}))
	defer upstream.Close()

	client := weather.NewClient("k", weather.WithBaseURL(upstream.URL), weather.WithHTTPClient(upstream.Client()))
	h := newTestServer(t, client, &fakeResolver{})

	resp := get(t, h, "/api/weather")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"name":"Lima","cod":200}`, readBody(t, resp))

	resp = get(t, h, "/api/weather?city=Atlantis")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := readBody(t, resp)
	assert.NotContains(t, body, "city not found", "provider details must not leak")
}

func TestTimezone(t *testing.T) {
	ok := timezone.Snapshot{
		Status:    timezone.StatusOK,
		ZoneName:  "America/Lima",
		Formatted: "2026-10-18 10:00:00",
		GMTOffset: -18000,
		Timestamp: 1792317600,
	}

	t.Run("ok", func(t *testing.T) {
		resp := get(t, newTestServer(t, &fakeProvider{}, &fakeResolver{snap: ok}), "/api/timezone?lat=-12.04&lon=-77.03")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t,
			`{"status":"OK","zoneName":"America/Lima","formatted":"2026-10-18 10:00:00","gmtOffset":-18000,"timestamp":1792317600}`,
			readBody(t, resp))
	})

	t.Run("unknown zone", func(t *testing.T) {
		zones := &fakeResolver{
			snap: timezone.Snapshot{Status: timezone.StatusError, Message: "no timezone for coordinate"},
			err:  timezone.ErrUnknownZone,
		}
		resp := get(t, newTestServer(t, &fakeProvider{}, zones), "/api/timezone?lat=0&lon=-140")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var snap timezone.Snapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		assert.Equal(t, timezone.StatusError, snap.Status)
		assert.False(t, snap.OK())
	})

	t.Run("not numbers", func(t *testing.T) {
		resp := get(t, newTestServer(t, &fakeProvider{}, &fakeResolver{snap: ok}), "/api/timezone?lat=abc&lon=1")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, codeInvalidCoordinate, decodeError(t, resp).Code)
	})

	t.Run("out of range", func(t *testing.T) {
		resolver := timezone.NewResolver(clockwork.NewFakeClock(), nil)
		resp := get(t, newTestServer(t, &fakeProvider{}, resolver), "/api/timezone?lat=95&lon=1")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, codeInvalidCoordinate, decodeError(t, resp).Code)
	})

	t.Run("real resolver", func(t *testing.T) {
		now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
		resolver := timezone.NewResolver(clockwork.NewFakeClockAt(now), nil)
		resp := get(t, newTestServer(t, &fakeProvider{}, resolver), "/api/timezone?lat=-12.04318&lon=-77.028236")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var snap timezone.Snapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		assert.Equal(t, timezone.StatusOK, snap.Status)
		assert.Equal(t, "America/Lima", snap.ZoneName)
		assert.Equal(t, -18000, snap.GMTOffset)
		assert.Equal(t, "2026-10-18 10:00:00", snap.Formatted)
	})
}

func TestCitySearch(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, &fakeResolver{})

	names := func(resp *http.Response) []string {
		var cities []gazetteer.City
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cities))
		out := make([]string, 0, len(cities))
		for _, c := range cities {
			out = append(out, c.Name+"/"+c.Country)
		}
		return out
	}

	resp := get(t, h, "/api/cities/search?q=lim")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Lima/PE", "Lima/US", "Limassol/CY", "Lima Province/PE"}, names(resp))

	resp = get(t, h, "/api/cities/search?q=Paris")
	assert.Equal(t, []string{"Paris/FR"}, names(resp))

	resp = get(t, h, "/api/cities/search?q=lim&limit=2")
	assert.Equal(t, []string{"Lima/PE", "Lima/US"}, names(resp))

	resp = get(t, h, "/api/cities/search?q=lim&limit=500")
	assert.Len(t, names(resp), 4)

	resp = get(t, h, "/api/cities/search")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, readBody(t, resp))

	resp = get(t, h, "/api/cities/search?q=zzz")
	assert.JSONEq(t, `[]`, readBody(t, resp))
}

func TestCitySearchErrors(t *testing.T) {
	h := newTestServer(t, &fakeProvider{}, &fakeResolver{})
	for _, limit := range []string{"0", "-1", "x"} {
		resp := get(t, h, "/api/cities/search?q=lim&limit="+limit)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit=%s", limit)
		assert.Equal(t, codeInvalidLimit, decodeError(t, resp).Code)
	}

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	failing := New(&fakeProvider{}, failingSearcher{}, &fakeResolver{}, WithLogger(discard)).Handler()
	resp := get(t, failing, "/api/cities/search?q=lim")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, codeDatasetError, decodeError(t, resp).Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, &fakeProvider{body: `{}`}, &fakeResolver{},
		WithAllowedOrigins([]string{"http://localhost:5173"}))

	preflight := func(origin string) *http.Response {
		req := httptest.NewRequest(http.MethodOptions, "/api/weather", http.NoBody)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Result()
	}

	resp := preflight("http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "GET")

	resp = preflight("http://evil.local")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/weather", http.NoBody)
	req.Header.Set("Origin", "http://evil.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowAll(t *testing.T) {
	h := newTestServer(t, &fakeProvider{body: `{}`}, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/api/weather", http.NoBody)
	req.Header.Set("Origin", "https://clima.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := &fakeProvider{body: `{}`}
	h := newTestServer(t, p, &fakeResolver{}, WithRateLimit(2), WithClock(fc))

	for range 2 {
		assert.Equal(t, http.StatusOK, get(t, h, "/api/weather").StatusCode)
	}
	resp := get(t, h, "/api/forecast")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, codeRateLimited, decodeError(t, resp).Code)
	assert.Equal(t, 2, p.calls)

	// Local endpoints are not limited.
	assert.Equal(t, http.StatusOK, get(t, h, "/api/cities/search?q=lim").StatusCode)

	fc.Advance(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/weather").StatusCode)
}

func TestRateLimitDisabled(t *testing.T) {
	h := newTestServer(t, &fakeProvider{body: `{}`}, &fakeResolver{}, WithRateLimit(0))
	for range 50 {
		require.Equal(t, http.StatusOK, get(t, h, "/api/weather").StatusCode)
	}
}

type panicProvider struct{ fakeProvider }

func (panicProvider) Current(context.Context, string, string) (json.RawMessage, error) {
	panic("provider exploded")
}

func TestPanicRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := New(&panicProvider{}, failingSearcher{}, &fakeResolver{}, WithLogger(logger)).Handler()

	resp := get(t, h, "/api/weather")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, codeInternalError, decodeError(t, resp).Code)
	assert.Contains(t, logs.String(), "provider exploded")
}

func TestRequestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := New(&fakeProvider{}, failingSearcher{}, &fakeResolver{}, WithLogger(logger)).Handler()

	resp := get(t, h, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, logs.String(), "path=/health")
	assert.Contains(t, logs.String(), "status=200")
	assert.Contains(t, logs.String(), "request_id="+resp.Header.Get("X-Request-ID"))
}
