// Package main implements the clima web server: weather proxy, timezone
// lookup and city autocomplete.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/clima/pkg/gazetteer"
	"github.com/codeGROOVE-dev/clima/pkg/server"
	"github.com/codeGROOVE-dev/clima/pkg/timezone"
	"github.com/codeGROOVE-dev/clima/pkg/weather"
)

var (
	port        = flag.String("port", "3000", "Port for web server (or set PORT)")
	apiKey      = flag.String("openweather-key", "", "OpenWeather API key (or set OPENWEATHER_API_KEY)")
	corsOrigins = flag.String("cors-origins", "", "Comma-separated allowed origins, * for any (or set CORS_ORIGINS)")
	citiesFile  = flag.String("cities-file", "", "City list JSON, optionally gzipped (or set CITIES_FILE)")
	citiesURL   = flag.String("cities-url", "", "URL of the city list (or set CITIES_URL)")
	rateLimit   = flag.Int("rate-limit", server.DefaultRateLimit, "Weather requests per client IP per minute, 0 to disable")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("clima server v1.0.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	envFallback(set, "port", port, "PORT")
	envFallback(set, "openweather-key", apiKey, "OPENWEATHER_API_KEY")
	envFallback(set, "cors-origins", corsOrigins, "CORS_ORIGINS")
	envFallback(set, "cities-file", citiesFile, "CITIES_FILE")
	envFallback(set, "cities-url", citiesURL, "CITIES_URL")
	if *corsOrigins == "" {
		*corsOrigins = "*"
	}

	// Log configuration (without exposing sensitive keys)
	logger.Info("Server configuration",
		"port", *port,
		"verbose", *verbose,
		"cors_origins", *corsOrigins,
		"cities_file", *citiesFile,
		"cities_url", *citiesURL,
		"rate_limit", *rateLimit,
		"has_openweather_key", *apiKey != "")

	if *apiKey == "" {
		logger.Warn("OPENWEATHER_API_KEY not set - weather endpoints will answer 500")
	}

	table := gazetteer.NewTable(citySource(logger))
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
	cities, err := table.Cities(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Error("Failed to load city dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("City dataset loaded", "cities", len(cities))

	httpClient := &http.Client{Timeout: 15 * time.Second}
	srv := server.New(
		weather.NewClient(*apiKey, weather.WithHTTPClient(httpClient), weather.WithLogger(logger)),
		gazetteer.NewSearcher(table, time.Hour, logger),
		timezone.NewResolver(nil, logger),
		server.WithLogger(logger),
		server.WithAllowedOrigins(strings.Split(*corsOrigins, ",")),
		server.WithRateLimit(*rateLimit),
	)

	httpServer := &http.Server{
		Addr:              ":" + *port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "url", "http://localhost:"+*port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

// envFallback fills a flag not given on the command line from the environment.
func envFallback(set map[string]bool, name string, val *string, env string) {
	if set[name] {
		return
	}
	if v := os.Getenv(env); v != "" {
		*val = v
	}
}

// citySource picks the dataset: URL, then file, then the embedded sample.
func citySource(logger *slog.Logger) gazetteer.Source {
	switch {
	case *citiesURL != "":
		return gazetteer.URL(*citiesURL, &http.Client{Timeout: time.Minute}, logger)
	case *citiesFile != "":
		return gazetteer.File(*citiesFile)
	default:
		logger.Warn("No city dataset configured - using the embedded sample")
		return gazetteer.Embedded()
	}
}
