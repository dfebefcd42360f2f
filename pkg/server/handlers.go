package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/clima/pkg/timezone"
	"github.com/codeGROOVE-dev/clima/pkg/weather"
)

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Welcome))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	city := paramOr(params, "city", weather.DefaultCity)
	country := paramOr(params, "country", weather.DefaultCountry)
	if strings.TrimSpace(city) == "" || strings.TrimSpace(country) == "" {
		writeError(w, http.StatusBadRequest, codeMissingLocation, "City and country are required")
		return
	}

	body, err := s.weather.Current(r.Context(), city, country)
	if err != nil {
		s.providerError(w, r, err, "Failed to fetch weather data")
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// handleForecast accepts either q (as the frontend sends it) or city and country.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var query string
	if params.Has("q") {
		query = params.Get("q")
	} else {
		city := paramOr(params, "city", weather.DefaultCity)
		country := paramOr(params, "country", weather.DefaultCountry)
		if strings.TrimSpace(city) != "" && strings.TrimSpace(country) != "" {
			query = weather.Query(city, country)
		}
	}
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, codeMissingLocation, "City and country are required")
		return
	}

	body, err := s.weather.Forecast(r.Context(), query)
	if err != nil {
		s.providerError(w, r, err, "Failed to fetch forecast data")
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// providerError maps weather client failures onto responses. Provider details
// are logged, never returned.
func (s *Server) providerError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	requestID := w.Header().Get("X-Request-ID")

	switch {
	case errors.Is(err, weather.ErrMissingAPIKey):
		s.logger.Error("weather provider not configured", "request_id", requestID, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, codeMissingAPIKey, "API key is not defined")
	case errors.Is(err, weather.ErrMissingLocation):
		writeError(w, http.StatusBadRequest, codeMissingLocation, "City and country are required")
	case errors.Is(err, weather.ErrUpstream):
		s.logger.Warn("weather provider request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, codeUpstream, msg)
	default:
		s.logger.Error("weather request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, msg)
	}
}

// handleTimezone answers with a timezone snapshot. Unresolvable locations get
// status ERROR in a 200 response; malformed coordinates are a 400.
func (s *Server) handleTimezone(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	lat, latErr := strconv.ParseFloat(params.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(params.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, codeInvalidCoordinate, "lat and lon must be numbers")
		return
	}

	snap, err := s.zones.Lookup(lat, lon)
	if errors.Is(err, timezone.ErrInvalidCoordinate) {
		writeError(w, http.StatusBadRequest, codeInvalidCoordinate, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("timezone lookup failed",
			"request_id", w.Header().Get("X-Request-ID"), "lat", lat, "lon", lon, "error", err)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCitySearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	limit := DefaultSearchLimit
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeInvalidLimit, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxSearchLimit)
	}

	cities, err := s.cities.Search(r.Context(), params.Get("q"), limit)
	if err != nil {
		s.logger.Error("city search failed", "request_id", w.Header().Get("X-Request-ID"), "error", err)
		writeError(w, http.StatusServiceUnavailable, codeDatasetError, "city data unavailable")
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// paramOr returns the named parameter, or def when it is absent. A parameter
// present with an empty value is returned as-is.
func paramOr(params url.Values, name, def string) string {
	if !params.Has(name) {
		return def
	}
	return params.Get(name)
}
