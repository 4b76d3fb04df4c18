package store

import (
	"context"
	"errors"
	"time"
)

// ErrPersistence wraps every storage failure reported by an adapter.
var ErrPersistence = errors.New("persistence error")

// Reading is one accepted consensus observation. Readings are append-only;
// a correction is a new Reading.
type Reading struct {
	ID          string    `json:"id"`
	Raw         float64   `json:"raw"`
	Smoothed    float64   `json:"smoothed"`
	SourceLabel string    `json:"source_label"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Store persists readings and returns the most recent one. LatestReading
// returns (nil, nil) when nothing has been stored yet.
//
//go:generate mockgen -package=rate_test -destination=../rate/mock_store_test.go -source=store.go Store
type Store interface {
	AppendReading(ctx context.Context, raw, smoothed float64, sourceLabel string, observedAt time.Time) (Reading, error)
	LatestReading(ctx context.Context) (*Reading, error)
}

// Validate rejects readings that must never be persisted.
func Validate(raw, smoothed float64) error {
	if !(raw > 0) || !(smoothed > 0) {
		return errors.Join(ErrPersistence, errors.New("reading values must be positive"))
	}
	return nil
}
