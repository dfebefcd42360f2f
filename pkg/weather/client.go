// Package weather proxies the OpenWeather current-weather and forecast APIs
// and carries the presentation helpers shared by the server and the CLI.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the OpenWeather 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Location used when a request names none.
const (
	DefaultCity    = "Lima"
	DefaultCountry = "PE"
)

const maxBodySize = 4 << 20

// Client errors.
var (
	ErrMissingAPIKey   = errors.New("API key is not defined")
	ErrMissingLocation = errors.New("city and country are required")
	ErrUpstream        = errors.New("weather provider request failed")
)

// UpstreamError describes a failed provider call. It matches ErrUpstream.
type UpstreamError struct {
	Err        error
	Endpoint   string
	Message    string // provider's own "message" field, if any
	StatusCode int    // 0 when no response was received
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Endpoint, ErrUpstream)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches provider JSON. Responses are returned as-is, never cached,
// and failed calls are not retried.
type Client struct {
	httpClient HTTPClient
	logger     *slog.Logger
	apiKey     string
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets the transport.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new OpenWeather client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Query joins city and country into the provider's "q" parameter.
func Query(city, country string) string {
	return strings.TrimSpace(city) + "," + strings.TrimSpace(country)
}

// Current returns the provider's current-weather JSON for city,country.
func (c *Client) Current(ctx context.Context, city, country string) (json.RawMessage, error) {
	if strings.TrimSpace(city) == "" || strings.TrimSpace(country) == "" {
		return nil, ErrMissingLocation
	}
	return c.get(ctx, "weather", Query(city, country))
}

// Forecast returns the provider's 5 day / 3 hour forecast JSON for query,
// which is a city name optionally followed by ",country".
func (c *Client) Forecast(ctx context.Context, query string) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMissingLocation
	}
	return c.get(ctx, "forecast", query)
}

func (c *Client) get(ctx context.Context, endpoint, q string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	apiURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &apiErr); err != nil {
			c.logger.Debug("provider error body is not JSON", "endpoint", endpoint, "error", err)
		}
		c.logger.Debug("provider returned error", "endpoint", endpoint, "q", q,
			"status", resp.StatusCode, "message", apiErr.Message)
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	if !json.Valid(body) {
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: errors.New("response is not JSON")}
	}

	c.logger.Debug("provider response", "endpoint", endpoint, "q", q, "bytes", len(body))
	return json.RawMessage(body), nil
}
