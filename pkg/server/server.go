// Package server exposes the weather proxy, the timezone lookup and the city
// autocomplete over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/codeGROOVE-dev/clima/pkg/gazetteer"
	"github.com/codeGROOVE-dev/clima/pkg/timezone"
)

// Welcome is the body served at the root path.
const Welcome = "Welcome to the Clima App API!"

// Search limits for /api/cities/search.
const (
	DefaultSearchLimit = gazetteer.DefaultLimit
	MaxSearchLimit     = 50
)

// DefaultRateLimit is provider requests per client IP per minute.
const DefaultRateLimit = 30

// WeatherProvider fetches provider-shaped JSON.
type WeatherProvider interface {
	Current(ctx context.Context, city, country string) (json.RawMessage, error)
	Forecast(ctx context.Context, query string) (json.RawMessage, error)
}

// CitySearcher ranks gazetteer entries for a typed prefix.
type CitySearcher interface {
	Search(ctx context.Context, query string, limit int) ([]gazetteer.City, error)
}

// ZoneResolver maps coordinates to a timezone snapshot.
type ZoneResolver interface {
	Lookup(lat, lon float64) (timezone.Snapshot, error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	weather   WeatherProvider
	cities    CitySearcher
	zones     ZoneResolver
	clock     clockwork.Clock
	limiter   *rateLimiter
	logger    *slog.Logger
	origins   []string
	rateLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithAllowedOrigins sets the CORS allow-list. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithRateLimit sets provider requests per client IP per minute; 0 disables limiting.
func WithRateLimit(n int) Option {
	return func(s *Server) {
		s.rateLimit = n
	}
}

// WithClock sets the clock used by the rate limiter.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// New creates a Server.
func New(provider WeatherProvider, cities CitySearcher, zones ZoneResolver, opts ...Option) *Server {
	s := &Server{
		weather:   provider,
		cities:    cities,
		zones:     zones,
		origins:   []string{"*"},
		rateLimit: DefaultRateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.rateLimit > 0 {
		s.limiter = newRateLimiter(s.clock, s.rateLimit)
	}
	return s
}

// Handler returns the routed and wrapped handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleWelcome)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/weather", s.limited(s.handleWeather))
	mux.HandleFunc("GET /api/forecast", s.limited(s.handleForecast))
	mux.HandleFunc("GET /api/timezone", s.handleTimezone)
	mux.HandleFunc("GET /api/cities/search", s.handleCitySearch)

	return s.wrap(s.logRequests(cors(s.origins, mux)))
}

// wrap assigns a request id, recovers from handler panics and sets the
// security headers common to every response.
func (s *Server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]

				s.logger.Error("PANIC: request handler crashed",
					"error", fmt.Sprint(err),
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"client_ip", clientIP(r),
					"user_agent", r.Header.Get("User-Agent"),
					"stack", string(buf))
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
			}
		}()

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store")
		}

		handler.ServeHTTP(w, r)
	})
}
