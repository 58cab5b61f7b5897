// Package store persists weather request records in sqlite through GORM.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tripcast/weather-advisor/internal/apperr"
)

// WeatherRequest is the persisted result of one location+date-range lookup.
// WeatherData and ExtraData are opaque JSON snapshots, never reinterpreted here.
type WeatherRequest struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	LocationRaw  string         `gorm:"not null" json:"locationRaw"`
	LocationName string         `json:"locationName"`
	Lat          float64        `json:"lat"`
	Lon          float64        `json:"lon"`
	StartDate    string         `gorm:"type:varchar(10)" json:"startDate"`
	EndDate      string         `gorm:"type:varchar(10)" json:"endDate"`
	WeatherData  datatypes.JSON `json:"weatherData"`
	AIAdvice     *string        `gorm:"column:ai_advice" json:"aiAdvice"`
	ExtraData    datatypes.JSON `json:"extraData"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`
}

func (WeatherRequest) TableName() string { return "weather_requests" }

// UpdateParams carries a partial update. Nil fields stay unchanged.
// AIAdvice distinguishes "set to a value" from "clear" via sql.NullString.
type UpdateParams struct {
	Location    *string
	Lat         *float64
	Lon         *float64
	StartDate   *string
	EndDate     *string
	WeatherData datatypes.JSON
	AIAdvice    *sql.NullString
	ExtraData   datatypes.JSON
}

// RequestStore is the contract the sqlite store satisfies.
type RequestStore interface {
	Create(ctx context.Context, req *WeatherRequest) error
	List(ctx context.Context) ([]WeatherRequest, error)
	GetByID(ctx context.Context, id string) (WeatherRequest, error)
	Update(ctx context.Context, id string, params UpdateParams) (WeatherRequest, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// Open opens (or creates) the sqlite database and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if err := db.AutoMigrate(&WeatherRequest{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

type gormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) RequestStore {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, req *WeatherRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (s *gormStore) List(ctx context.Context) ([]WeatherRequest, error) {
	items := make([]WeatherRequest, 0)
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return items, nil
}

func (s *gormStore) GetByID(ctx context.Context, id string) (WeatherRequest, error) {
	var item WeatherRequest
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return WeatherRequest{}, fmt.Errorf("request %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return WeatherRequest{}, fmt.Errorf("get request: %w", err)
	}
	return item, nil
}

// Update applies the supplied fields only. ID and CreatedAt are immutable.
func (s *gormStore) Update(ctx context.Context, id string, params UpdateParams) (WeatherRequest, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return WeatherRequest{}, err
	}

	values := map[string]interface{}{}
	if params.Location != nil {
		// Manual location edits overwrite both the raw and canonical names.
		values["location_raw"] = *params.Location
		values["location_name"] = *params.Location
	}
	if params.Lat != nil {
		values["lat"] = *params.Lat
	}
	if params.Lon != nil {
		values["lon"] = *params.Lon
	}
	if params.StartDate != nil {
		values["start_date"] = *params.StartDate
	}
	if params.EndDate != nil {
		values["end_date"] = *params.EndDate
	}
	if params.WeatherData != nil {
		values["weather_data"] = params.WeatherData
	}
	if params.AIAdvice != nil {
		if params.AIAdvice.Valid {
			values["ai_advice"] = params.AIAdvice.String
		} else {
			values["ai_advice"] = nil
		}
	}
	if params.ExtraData != nil {
		values["extra_data"] = params.ExtraData
	}

	if len(values) > 0 {
		err := s.db.WithContext(ctx).Model(&WeatherRequest{}).Where("id = ?", id).Updates(values).Error
		if err != nil {
			return WeatherRequest{}, fmt.Errorf("update request: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

func (s *gormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&WeatherRequest{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("request %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *gormStore) DeleteAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&WeatherRequest{}).Error
	if err != nil {
		return fmt.Errorf("delete all requests: %w", err)
	}
	return nil
}
