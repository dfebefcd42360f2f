// Package main implements the clima CLI: city search, current weather,
// forecast chart and a live local clock for any location.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/codeGROOVE-dev/clima/pkg/gazetteer"
	"github.com/codeGROOVE-dev/clima/pkg/histogram"
	"github.com/codeGROOVE-dev/clima/pkg/localclock"
	"github.com/codeGROOVE-dev/clima/pkg/timezone"
	"github.com/codeGROOVE-dev/clima/pkg/tzconvert"
	"github.com/codeGROOVE-dev/clima/pkg/weather"
)

const usage = `Usage: clima [-verbose] <command> [flags] [args]

Commands:
  search   <query>            rank cities by name prefix
  weather  <city> [country]   current conditions
  forecast <city> [country]   5 day forecast chart
  clock                       live local time (-offset, -zone or -lat/-lon)
`

var (
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	version = flag.Bool("version", false, "Show version")
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.FgHiBlack)
	warn  = color.New(color.FgYellow)
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Println("clima CLI v1.0.0")
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "search":
		err = runSearch(ctx, os.Stdout, args[1:], logger)
	case "weather":
		err = runWeather(ctx, os.Stdout, args[1:], logger)
	case "forecast":
		err = runForecast(ctx, os.Stdout, args[1:], logger)
	case "clock":
		err = runClock(ctx, os.Stdout, args[1:], logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func runSearch(ctx context.Context, out io.Writer, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", gazetteer.DefaultLimit, "Maximum number of suggestions")
	citiesFile := fs.String("cities-file", os.Getenv("CITIES_FILE"), "City list JSON, optionally gzipped")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search needs a query")
	}

	src := gazetteer.Embedded()
	if *citiesFile != "" {
		src = gazetteer.File(*citiesFile)
	}
	cities, err := gazetteer.NewTable(src).Cities(ctx)
	if err != nil {
		return err
	}
	logger.Debug("dataset loaded", "cities", len(cities))

	ranked := gazetteer.Rank(cities, query, *limit)
	if len(ranked) == 0 {
		_, _ = warn.Fprintf(out, "No cities start with %q\n", query)
		return nil
	}
	for _, c := range ranked {
		place := c.Country
		if c.State != "" {
			place = c.State + ", " + c.Country
		}
		fmt.Fprintf(out, "%s %s %s\n",
			bold.Sprint(c.Name),
			place,
			faint.Sprintf("(%.4f, %.4f) #%d", c.Coord.Lat, c.Coord.Lon, c.ID))
	}
	return nil
}

// locationArgs reads "<city> [country]" with the server's defaults.
func locationArgs(args []string) (city, country string) {
	city, country = weather.DefaultCity, weather.DefaultCountry
	if len(args) > 0 {
		city = args[0]
	}
	if len(args) > 1 {
		country = args[1]
	}
	return city, country
}

func newWeatherClient(logger *slog.Logger) (*weather.Client, error) {
	key, err := apiKey()
	if err != nil {
		return nil, err
	}
	return weather.NewClient(key, weather.WithLogger(logger)), nil
}

// apiKey reads the OpenWeather key from the environment, then from
// ~/.config/clima/openweather_api_key.
func apiKey() (string, error) {
	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		return key, nil
	}
	home, err := os.UserHomeDir()
	if err == nil {
		b, err := os.ReadFile(filepath.Join(home, ".config", "clima", "openweather_api_key"))
		if err == nil && strings.TrimSpace(string(b)) != "" {
			return strings.TrimSpace(string(b)), nil
		}
	}
	return "", fmt.Errorf("%w: set OPENWEATHER_API_KEY or write it to ~/.config/clima/openweather_api_key",
		weather.ErrMissingAPIKey)
}

func runWeather(ctx context.Context, out io.Writer, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("weather", flag.ExitOnError)
	fahrenheit := fs.Bool("fahrenheit", false, "Show temperatures in °F")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := newWeatherClient(logger)
	if err != nil {
		return err
	}

	city, country := locationArgs(fs.Args())
	raw, err := client.Current(ctx, city, country)
	if err != nil {
		return err
	}
	cur, err := weather.DecodeCurrent(raw)
	if err != nil {
		return err
	}
	printCurrent(out, cur, !*fahrenheit)
	return nil
}

func printCurrent(out io.Writer, cur *weather.Current, celsius bool) {
	cond := cur.Primary()
	c := histogram.ThemeColor(weather.ThemeFor(cur.Main.Temp, cond.Main))
	temp := func(v float64) string {
		return weather.FormatTemperature(weather.ConvertTemperature(v, celsius), celsius)
	}

	fmt.Fprintf(out, "%s, %s  %s\n", bold.Sprint(cur.Name), cur.Sys.Country,
		faint.Sprint(weather.FormatDay(cur.DateTime, cur.Timezone)+" "+weather.FormatClock(cur.DateTime, cur.Timezone)))
	fmt.Fprintf(out, "%s  %s\n", c.Sprint(temp(cur.Main.Temp)), cases.Title(language.Spanish).String(cond.Description))
	fmt.Fprintf(out, "Sensación térmica %s · min %s · max %s\n",
		temp(cur.Main.FeelsLike), temp(cur.Main.TempMin), temp(cur.Main.TempMax))
	fmt.Fprintf(out, "Humedad %d%% · Presión %d hPa · Viento %.1f m/s · Visibilidad %.1f km\n",
		cur.Main.Humidity, cur.Main.Pressure, cur.Wind.Speed, float64(cur.Visibility)/1000)
	fmt.Fprintf(out, "Amanecer %s · Atardecer %s\n",
		weather.FormatClock(cur.Sys.Sunrise, cur.Timezone), weather.FormatClock(cur.Sys.Sunset, cur.Timezone))
}

func runForecast(ctx context.Context, out io.Writer, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("forecast", flag.ExitOnError)
	fahrenheit := fs.Bool("fahrenheit", false, "Show temperatures in °F")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, err := newWeatherClient(logger)
	if err != nil {
		return err
	}

	raw, err := client.Forecast(ctx, weather.Query(locationArgs(fs.Args())))
	if err != nil {
		return err
	}
	f, err := weather.DecodeForecast(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s, %s\n", bold.Sprint(f.City.Name), f.City.Country)
	fmt.Fprint(out, histogram.Forecast(f.List, f.City.Timezone, !*fahrenheit))
	return nil
}

func runClock(ctx context.Context, out io.Writer, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("clock", flag.ExitOnError)
	offset := fs.Int("offset", 0, "UTC offset in seconds")
	zone := fs.String("zone", "", "UTC offset such as UTC-5 or UTC+05:30")
	lat := fs.Float64("lat", 0, "Latitude")
	lon := fs.Float64("lon", 0, "Longitude")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var snap timezone.Snapshot
	switch {
	case set["lat"] || set["lon"]:
		var err error
		snap, err = timezone.NewResolver(nil, logger).Lookup(*lat, *lon)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", bold.Sprint(snap.ZoneName), faint.Sprint(tzconvert.FormatOffset(snap.GMTOffset)))
	case *zone != "":
		secs, err := tzconvert.ParseOffset(*zone)
		if err != nil {
			return err
		}
		snap = timezone.Snapshot{Status: timezone.StatusOK, GMTOffset: secs}
	default:
		snap = timezone.Snapshot{Status: timezone.StatusOK, GMTOffset: *offset}
	}

	sim := localclock.New(localclock.WithLogger(logger))
	sim.OnChange(func(r localclock.Reading) {
		fmt.Fprintf(out, "\r%s  %s", bold.Sprint(r.Time), faint.Sprint(r.Date))
	})
	if !sim.StartSnapshot(snap) {
		return fmt.Errorf("timezone lookup failed: %s", snap.Message)
	}
	defer sim.Stop()

	<-ctx.Done()
	sim.Stop()
	fmt.Fprintln(out)
	return nil
}
