package openweather

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcast/weather-advisor/internal/apperr"
	"github.com/tripcast/weather-advisor/internal/observability"
)

const testKey = "test-key"

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:          testKey,
		httpClient:      &http.Client{Timeout: 5 * time.Second},
		geoBaseURL:      baseURL + "/geo/1.0/direct",
		currentBaseURL:  baseURL + "/data/2.5/weather",
		forecastBaseURL: baseURL + "/data/2.5/forecast",
		geoCircuit:      newBreaker("test-geo"),
		weatherCircuit:  newBreaker("test-data"),
		metrics:         observability.NewMetricsForTesting(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGeocodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Tokyo", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))

		_, err := w.Write([]byte(`[{"name":"Tokyo","lat":35.6828,"lon":139.759,"country":"JP"}]`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "Tokyo, JP", result.Name)
	assert.Equal(t, 35.6828, result.Lat)
	assert.Equal(t, 139.759, result.Lon)
	assert.Equal(t, "JP", result.Country)
}

func TestGeocodeNoMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Geocode(context.Background(), "Nowheresville")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGeocodeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Geocode(context.Background(), "Tokyo")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestCurrentCarriesRawPayload(t *testing.T) {
	body := `{"main":{"temp":21.5,"feels_like":20.1,"humidity":40},"wind":{"speed":3.2},"weather":[{"description":"scattered clouds"}],"name":"Tokyo"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	cur, err := c.Current(context.Background(), 35.68, 139.76)
	require.NoError(t, err)

	assert.Equal(t, 21.5, cur.Temperature)
	assert.Equal(t, 20.1, cur.FeelsLike)
	assert.Equal(t, 40.0, cur.Humidity)
	assert.Equal(t, 3.2, cur.Wind)
	assert.Equal(t, "scattered clouds", cur.Description)
	assert.JSONEq(t, body, string(cur.Raw))
}

func TestForecast5DayMapsSamples(t *testing.T) {
	payload := map[string]any{
		"list": []map[string]any{
			{
				"dt":      int64(1771200000),
				"main":    map[string]any{"temp": 4.5},
				"weather": []map[string]any{{"description": "snow", "icon": "13d"}},
			},
			{
				"dt":      int64(1771210800),
				"main":    map[string]any{},
				"weather": []map[string]any{},
			},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	samples, err := c.Forecast5Day(context.Background(), 35.68, 139.76)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, time.Unix(1771200000, 0).UTC(), samples[0].Time)
	require.NotNil(t, samples[0].Temp)
	assert.Equal(t, 4.5, *samples[0].Temp)
	assert.Equal(t, "13d", *samples[0].Icon)
	assert.Equal(t, "snow", *samples[0].Description)

	// Missing numeric temperature stays nil, it must not default to zero.
	assert.Nil(t, samples[1].Temp)
	assert.Nil(t, samples[1].Icon)
}

func TestForecast5DayUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Forecast5Day(context.Background(), 35.68, 139.76)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}
