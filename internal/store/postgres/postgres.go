package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fxrate/internal/store"
)

// ReadingModel is the readings table row.
type ReadingModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Raw         float64   `gorm:"not null"`
	Smoothed    float64   `gorm:"not null"`
	SourceLabel string    `gorm:"size:128;not null"`
	ObservedAt  time.Time `gorm:"not null;index"`
	CreatedAt   time.Time
}

func (ReadingModel) TableName() string { return "readings" }

// Store persists readings in Postgres through gorm.
type Store struct {
	DB *gorm.DB
}

// Open connects to dsn and migrates the readings table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %w", store.ErrPersistence, err)
	}
	if err := db.AutoMigrate(&ReadingModel{}); err != nil {
		return nil, fmt.Errorf("%w: migrate readings: %w", store.ErrPersistence, err)
	}
	return New(db), nil
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) AppendReading(ctx context.Context, raw, smoothed float64, sourceLabel string, observedAt time.Time) (store.Reading, error) {
	if err := store.Validate(raw, smoothed); err != nil {
		return store.Reading{}, err
	}
	m := ReadingModel{
		ID:          uuid.New().String(),
		Raw:         raw,
		Smoothed:    smoothed,
		SourceLabel: sourceLabel,
		ObservedAt:  observedAt.UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return store.Reading{}, fmt.Errorf("%w: insert reading: %w", store.ErrPersistence, err)
	}
	return toDomain(m), nil
}

func (s *Store) LatestReading(ctx context.Context) (*store.Reading, error) {
	var m ReadingModel
	err := s.DB.WithContext(ctx).Order("observed_at DESC").Order("created_at DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: latest reading: %w", store.ErrPersistence, err)
	}
	r := toDomain(m)
	return &r, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toDomain(m ReadingModel) store.Reading {
	return store.Reading{
		ID:          m.ID,
		Raw:         m.Raw,
		Smoothed:    m.Smoothed,
		SourceLabel: m.SourceLabel,
		ObservedAt:  m.ObservedAt.UTC(),
	}
}
