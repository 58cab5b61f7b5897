package openweather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcast/weather-advisor/internal/apperr"
	"github.com/tripcast/weather-advisor/internal/observability"
)

type fakeGeocoder struct {
	calls  int
	result GeoResult
	err    error
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (GeoResult, error) {
	f.calls++
	return f.result, f.err
}

func TestCachedGeocoderHitsCache(t *testing.T) {
	inner := &fakeGeocoder{result: GeoResult{Name: "Tokyo, JP", Lat: 35.68, Lon: 139.76}}
	c := NewCachedGeocoder(inner, time.Hour, 16, observability.NewMetricsForTesting())

	first, err := c.Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	second, err := c.Geocode(context.Background(), "  tokyo ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "normalized queries share one cache entry")
}

func TestCachedGeocoderDoesNotCacheErrors(t *testing.T) {
	inner := &fakeGeocoder{err: errors.New("boom")}
	c := NewCachedGeocoder(inner, time.Hour, 16, observability.NewMetricsForTesting())

	_, err := c.Geocode(context.Background(), "Tokyo")
	require.Error(t, err)
	_, err = c.Geocode(context.Background(), "Tokyo")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoderNotFoundPassesThrough(t *testing.T) {
	inner := &fakeGeocoder{err: apperr.ErrNotFound}
	c := NewCachedGeocoder(inner, time.Hour, 16, observability.NewMetricsForTesting())

	_, err := c.Geocode(context.Background(), "Nowheresville")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCachedGeocoderTTLExpiry(t *testing.T) {
	inner := &fakeGeocoder{result: GeoResult{Name: "Tokyo, JP"}}
	c := NewCachedGeocoder(inner, 30*time.Millisecond, 16, observability.NewMetricsForTesting())

	_, err := c.Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = c.Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestPruneDropsExpiredEntries(t *testing.T) {
	inner := &fakeGeocoder{result: GeoResult{Name: "Tokyo, JP"}}
	c := NewCachedGeocoder(inner, 30*time.Millisecond, 16, observability.NewMetricsForTesting())

	_, err := c.Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	_, err = c.Geocode(context.Background(), "Osaka")
	require.NoError(t, err)

	assert.Equal(t, 0, c.Prune())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, c.Prune())
	assert.Empty(t, c.entries)
}
