// Package weather looks up the current outside temperature via Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const forecastPath = "/v1/forecast"

// Fetcher retrieves the current external temperature. A nil result with a
// nil error never occurs; callers treat any error as "reading unavailable".
type Fetcher interface {
	CurrentTemperature(ctx context.Context) (float64, error)
}

// Options parameterise the Open-Meteo lookup.
type Options struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	Timeout   time.Duration
}

// Client queries the Open-Meteo current-weather endpoint.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs an Open-Meteo client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "weather_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// CurrentTemperature fetches the current temperature at the configured
// coordinates, in degrees Celsius.
func (c *Client) CurrentTemperature(ctx context.Context) (float64, error) {
	endpoint := fmt.Sprintf("%s%s?latitude=%g&longitude=%g&current_weather=true",
		c.baseURL, forecastPath, c.opts.Latitude, c.opts.Longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send weather request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("open-meteo returned %d", resp.StatusCode)
	}

	var doc struct {
		CurrentWeather *struct {
			Temperature float64 `json:"temperature"`
		} `json:"current_weather"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return 0, fmt.Errorf("decode weather payload: %w", err)
	}
	if doc.CurrentWeather == nil {
		return 0, fmt.Errorf("weather payload missing current_weather")
	}

	return doc.CurrentWeather.Temperature, nil
}

var _ Fetcher = (*Client)(nil)
