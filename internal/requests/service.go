// Package requests orchestrates the lookup lifecycle: validate, geocode,
// fetch weather, generate advice, persist.
package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tripcast/weather-advisor/internal/apperr"
	"github.com/tripcast/weather-advisor/internal/forecast"
	"github.com/tripcast/weather-advisor/internal/observability"
	"github.com/tripcast/weather-advisor/internal/openweather"
	"github.com/tripcast/weather-advisor/internal/store"
)

const dateFormat = "2006-01-02"

// WeatherFetcher retrieves current conditions and the raw 5-day forecast.
type WeatherFetcher interface {
	Current(ctx context.Context, lat, lon float64) (openweather.Current, error)
	Forecast5Day(ctx context.Context, lat, lon float64) ([]forecast.Sample, error)
}

// Advisor generates optional creation-time advice.
type Advisor interface {
	TravelAdvice(ctx context.Context, locationName, startISO, endISO string, weather json.RawMessage) (string, error)
}

// Service runs the external-call chain strictly in sequence and owns the
// request store. A geocode or weather failure aborts before anything is
// written; an advice failure alone does not.
type Service struct {
	store   store.RequestStore
	geo     openweather.Geocoder
	weather WeatherFetcher
	advisor Advisor
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewService(st store.RequestStore, geo openweather.Geocoder, weather WeatherFetcher, advisor Advisor, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		geo:     geo,
		weather: weather,
		advisor: advisor,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateParams is the validated-on-entry input for a new lookup.
type CreateParams struct {
	Location  string
	StartDate string
	EndDate   string
}

// Create validates inputs before any external call, then runs
// geocode → weather → advice and persists exactly one record.
func (s *Service) Create(ctx context.Context, p CreateParams) (store.WeatherRequest, error) {
	location := strings.TrimSpace(p.Location)
	if location == "" {
		return store.WeatherRequest{}, fmt.Errorf("location is required: %w", apperr.ErrValidation)
	}
	start, end, err := parseDateRange(p.StartDate, p.EndDate)
	if err != nil {
		return store.WeatherRequest{}, err
	}

	geo, err := s.geo.Geocode(ctx, location)
	if err != nil {
		return store.WeatherRequest{}, err
	}

	current, err := s.weather.Current(ctx, geo.Lat, geo.Lon)
	if err != nil {
		return store.WeatherRequest{}, err
	}

	var advicePtr *string
	adviceText, err := s.advisor.TravelAdvice(ctx, geo.Name, start, end, current.Raw)
	if err != nil {
		// Advice is optional; the record is still created without it.
		s.logger.Warn("advice generation failed", "location", geo.Name, "error", err)
	} else if adviceText != "" {
		advicePtr = &adviceText
	}

	rec := store.WeatherRequest{
		LocationRaw:  location,
		LocationName: geo.Name,
		Lat:          geo.Lat,
		Lon:          geo.Lon,
		StartDate:    start,
		EndDate:      end,
		WeatherData:  datatypes.JSON(current.Raw),
		AIAdvice:     advicePtr,
		ExtraData:    buildExtras(geo.Lat, geo.Lon),
	}
	if err := s.store.Create(ctx, &rec); err != nil {
		return store.WeatherRequest{}, err
	}

	if s.metrics != nil {
		s.metrics.RequestsCreated.Inc()
	}
	s.logger.Info("weather request created", "id", rec.ID, "location", geo.Name)
	return rec, nil
}

// ForecastResult is the aggregated daily forecast for a resolved location.
type ForecastResult struct {
	LocationName string         `json:"locationName"`
	Lat          float64        `json:"lat"`
	Lon          float64        `json:"lon"`
	Days         []forecast.Day `json:"days"`
}

// Forecast resolves the location and collapses the provider's 3-hour samples
// into one summary per calendar day inside the inclusive date range.
func (s *Service) Forecast(ctx context.Context, location, startDate, endDate string) (ForecastResult, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return ForecastResult{}, fmt.Errorf("location is required: %w", apperr.ErrValidation)
	}
	start, end, err := parseDateRange(startDate, endDate)
	if err != nil {
		return ForecastResult{}, err
	}

	geo, err := s.geo.Geocode(ctx, location)
	if err != nil {
		return ForecastResult{}, err
	}

	samples, err := s.weather.Forecast5Day(ctx, geo.Lat, geo.Lon)
	if err != nil {
		return ForecastResult{}, err
	}

	return ForecastResult{
		LocationName: geo.Name,
		Lat:          geo.Lat,
		Lon:          geo.Lon,
		Days:         forecast.AggregateDaily(samples, start, end),
	}, nil
}

// List returns all records, newest first.
func (s *Service) List(ctx context.Context) ([]store.WeatherRequest, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (store.WeatherRequest, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies a partial update, re-validating date ordering when both
// dates are supplied.
func (s *Service) Update(ctx context.Context, id string, params store.UpdateParams) (store.WeatherRequest, error) {
	if params.StartDate != nil {
		if _, err := time.Parse(dateFormat, *params.StartDate); err != nil {
			return store.WeatherRequest{}, fmt.Errorf("startDate must be a valid date: %w", apperr.ErrValidation)
		}
	}
	if params.EndDate != nil {
		if _, err := time.Parse(dateFormat, *params.EndDate); err != nil {
			return store.WeatherRequest{}, fmt.Errorf("endDate must be a valid date: %w", apperr.ErrValidation)
		}
	}
	if params.StartDate != nil && params.EndDate != nil && *params.StartDate > *params.EndDate {
		return store.WeatherRequest{}, fmt.Errorf("startDate must be <= endDate: %w", apperr.ErrValidation)
	}
	return s.store.Update(ctx, id, params)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAll(ctx)
}

// parseDateRange normalizes both dates to "YYYY-MM-DD" and enforces ordering.
func parseDateRange(startDate, endDate string) (string, string, error) {
	start, err := time.Parse(dateFormat, startDate)
	if err != nil {
		return "", "", fmt.Errorf("startDate and endDate must be valid dates: %w", apperr.ErrValidation)
	}
	end, err := time.Parse(dateFormat, endDate)
	if err != nil {
		return "", "", fmt.Errorf("startDate and endDate must be valid dates: %w", apperr.ErrValidation)
	}
	if start.After(end) {
		return "", "", fmt.Errorf("startDate must be <= endDate: %w", apperr.ErrValidation)
	}
	return start.Format(dateFormat), end.Format(dateFormat), nil
}

// buildExtras derives map links from the resolved coordinates. The result is
// stored as an opaque JSON bag.
func buildExtras(lat, lon float64) datatypes.JSON {
	extras := map[string]string{
		"mapUrl":        fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.4f&mlon=%.4f#map=10/%.4f/%.4f", lat, lon, lat, lon),
		"googleMapsUrl": fmt.Sprintf("https://www.google.com/maps/@%.4f,%.4f,10z", lat, lon),
	}
	b, err := json.Marshal(extras)
	if err != nil {
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(b)
}
