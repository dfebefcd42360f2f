package gazetteer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

//go:embed data/cities.json
var embeddedData embed.FS

// maxDatasetSize caps remote downloads; the full provider list is ~45 MB uncompressed.
const maxDatasetSize = 128 << 20

// retryDelay is the initial backoff between download attempts.
var retryDelay = time.Second

// Source produces the full city list. It is invoked at most once per Table.
type Source func(ctx context.Context) ([]City, error)

// Table is the read-only, process-wide city dataset. It is loaded lazily on
// first use and never modified afterwards, so the slice it hands out may be
// shared freely between goroutines as long as callers do not write to it.
type Table struct {
	source Source
	err    error
	cities []City
	once   sync.Once
}

// NewTable returns a Table that loads from src on first use.
func NewTable(src Source) *Table {
	return &Table{source: src}
}

// NewStaticTable wraps an already loaded list (tests and small tools).
func NewStaticTable(cities []City) *Table {
	return NewTable(func(context.Context) ([]City, error) { return cities, nil })
}

// Cities returns the dataset, loading it on the first call. A load failure is
// permanent for this Table; the same error is returned on every call.
func (t *Table) Cities(ctx context.Context) ([]City, error) {
	t.once.Do(func() {
		t.cities, t.err = t.source(ctx)
	})
	return t.cities, t.err
}

// Embedded loads the small city sample compiled into the binary.
func Embedded() Source {
	return func(context.Context) ([]City, error) {
		f, err := embeddedData.Open("data/cities.json")
		if err != nil {
			return nil, fmt.Errorf("opening embedded cities: %w", err)
		}
		defer func() { _ = f.Close() }()
		return Decode(f)
	}
}

// File loads a city list (plain or gzip JSON) from disk.
func File(path string) Source {
	return func(context.Context) ([]City, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening city list: %w", err)
		}
		defer func() { _ = f.Close() }()
		return Decode(f)
	}
}

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// URL downloads a city list once at startup with exponential backoff and jitter.
func URL(rawURL string, client HTTPClient, logger *slog.Logger) Source {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) ([]City, error) {
		body, err := fetchWithRetry(ctx, client, logger, rawURL)
		if err != nil {
			return nil, err
		}
		return Decode(bytes.NewReader(body))
	}
}

func fetchWithRetry(ctx context.Context, client HTTPClient, logger *slog.Logger, rawURL string) ([]byte, error) {
	start := time.Now()
	var body []byte
	var lastErr error

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				lastErr = err
				return retry.Unrecoverable(err)
			}

			resp, err := client.Do(req)
			if err != nil {
				logger.Warn("city list download failed", "url", rawURL, "error", err)
				lastErr = err
				return err
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					logger.Debug("failed to close response body", "error", err)
				}
			}()

			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("city list server error: %d", resp.StatusCode)
				return lastErr
			}
			if resp.StatusCode != http.StatusOK {
				lastErr = fmt.Errorf("city list unavailable: %d", resp.StatusCode)
				return retry.Unrecoverable(lastErr)
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, maxDatasetSize))
			if err != nil {
				lastErr = fmt.Errorf("reading city list: %w", err)
				return lastErr
			}
			return nil
		},
		retry.Attempts(5),
		retry.Delay(retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(retryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("retrying city list download",
				"url", rawURL,
				"attempt", n+1,
				"error", err)
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		logger.Error("city list download failed after retries",
			"url", rawURL,
			"error", lastErr,
			"duration", time.Since(start))
		if lastErr == nil {
			lastErr = err
		}
		return nil, fmt.Errorf("downloading city list: %w", lastErr)
	}

	logger.Debug("city list downloaded", "url", rawURL, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}
