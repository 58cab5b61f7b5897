// Package openweather adapts the OpenWeatherMap geocoding, current weather and
// 5-day forecast endpoints. All three share one API key.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tripcast/weather-advisor/internal/apperr"
	"github.com/tripcast/weather-advisor/internal/forecast"
	"github.com/tripcast/weather-advisor/internal/observability"
)

// GeoResult is the single best match for a free-text place query.
type GeoResult struct {
	Name    string  `json:"name"` // "City, CC"
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

// Current holds the normalized current conditions plus the untouched provider
// payload. Raw is what gets persisted and handed to the advice generator.
type Current struct {
	Temperature float64         `json:"temperature"`
	FeelsLike   float64         `json:"feelsLike"`
	Humidity    float64         `json:"humidity"`
	Wind        float64         `json:"wind"`
	Description string          `json:"description"`
	Raw         json.RawMessage `json:"-"`
}

// Client calls the OpenWeatherMap API. Each endpoint group is guarded by its
// own circuit breaker; a single upstream failure still surfaces immediately,
// there are no retries.
type Client struct {
	apiKey     string
	httpClient *http.Client

	geoBaseURL      string
	currentBaseURL  string
	forecastBaseURL string

	geoCircuit     *gobreaker.CircuitBreaker
	weatherCircuit *gobreaker.CircuitBreaker

	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewClient(httpClient *http.Client, apiKey string, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:          apiKey,
		httpClient:      httpClient,
		geoBaseURL:      "https://api.openweathermap.org/geo/1.0/direct",
		currentBaseURL:  "https://api.openweathermap.org/data/2.5/weather",
		forecastBaseURL: "https://api.openweathermap.org/data/2.5/forecast",
		geoCircuit:      newBreaker("openweather-geo"),
		weatherCircuit:  newBreaker("openweather-data"),
		metrics:         metrics,
		logger:          logger,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// Geocode resolves a place name to its single best match.
// Zero matches is apperr.ErrNotFound; any transport or status failure is
// apperr.ErrUnavailable.
func (c *Client) Geocode(ctx context.Context, query string) (GeoResult, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "1")
	values.Set("appid", c.apiKey)

	body, err := c.get(ctx, c.geoCircuit, "geocode", c.geoBaseURL+"?"+values.Encode())
	if err != nil {
		return GeoResult{}, err
	}

	var matches []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
	}
	if err := json.Unmarshal(body, &matches); err != nil {
		return GeoResult{}, fmt.Errorf("geocode: decode response: %w", apperr.ErrUnavailable)
	}
	if len(matches) == 0 {
		return GeoResult{}, fmt.Errorf("location %q: %w", query, apperr.ErrNotFound)
	}

	m := matches[0]
	return GeoResult{
		Name:    fmt.Sprintf("%s, %s", m.Name, m.Country),
		Lat:     m.Lat,
		Lon:     m.Lon,
		Country: m.Country,
	}, nil
}

// Current fetches current conditions for the coordinates. The full provider
// body is carried through untouched in Raw.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Current, error) {
	body, err := c.get(ctx, c.weatherCircuit, "weather", c.dataURL(c.currentBaseURL, lat, lon))
	if err != nil {
		return Current{}, err
	}

	var payload struct {
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Current{}, fmt.Errorf("weather: decode response: %w", apperr.ErrUnavailable)
	}

	cur := Current{
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		Wind:        payload.Wind.Speed,
		Raw:         body,
	}
	if len(payload.Weather) > 0 {
		cur.Description = payload.Weather[0].Description
	}
	return cur, nil
}

// Forecast5Day fetches the raw 3-hour-step forecast list. No aggregation
// happens here; samples with a missing numeric temperature keep a nil Temp.
func (c *Client) Forecast5Day(ctx context.Context, lat, lon float64) ([]forecast.Sample, error) {
	body, err := c.get(ctx, c.weatherCircuit, "forecast", c.dataURL(c.forecastBaseURL, lat, lon))
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp *float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description *string `json:"description"`
				Icon        *string `json:"icon"`
			} `json:"weather"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("forecast: decode response: %w", apperr.ErrUnavailable)
	}

	samples := make([]forecast.Sample, 0, len(payload.List))
	for _, item := range payload.List {
		s := forecast.Sample{
			Time: time.Unix(item.Dt, 0).UTC(),
			Temp: item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			s.Icon = item.Weather[0].Icon
			s.Description = item.Weather[0].Description
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (c *Client) dataURL(base string, lat, lon float64) string {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Set("units", "metric")
	values.Set("appid", c.apiKey)
	return base + "?" + values.Encode()
}

func (c *Client) get(ctx context.Context, cb *gobreaker.CircuitBreaker, service, fullURL string) ([]byte, error) {
	start := time.Now()
	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(body), nil
	})
	c.metrics.ObserveUpstream(service, time.Since(start).Seconds(), err)

	if err != nil {
		c.logger.Warn("openweather call failed", "service", service, "error", err)
		return nil, fmt.Errorf("%s: %v: %w", service, err, apperr.ErrUnavailable)
	}
	return result.(json.RawMessage), nil
}
