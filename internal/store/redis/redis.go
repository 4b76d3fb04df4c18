package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fxrate/internal/logger"
	"fxrate/internal/store"
)

const DefaultKey = "fxrate:readings"

// Client is the subset of go-redis used by Store.
type Client interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LIndex(ctx context.Context, key string, index int64) *redis.StringCmd
}

// Store keeps readings as JSON in a Redis list, newest first.
type Store struct {
	client Client
	key    string
	limit  int64
	log    logrus.FieldLogger
}

// Connect dials addr and checks the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: redis ping: %w", store.ErrPersistence, err)
	}
	return rdb, nil
}

// New returns a store over client. limit caps the list length; 0 keeps the
// whole history.
func New(client Client, key string, limit int64) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key, limit: limit, log: logger.GetLogger()}
}

// WithLogger replaces the logger used for trim failures.
func (s *Store) WithLogger(l logrus.FieldLogger) *Store {
	s.log = l
	return s
}

func (s *Store) AppendReading(ctx context.Context, raw, smoothed float64, sourceLabel string, observedAt time.Time) (store.Reading, error) {
	if err := store.Validate(raw, smoothed); err != nil {
		return store.Reading{}, err
	}
	r := store.Reading{
		ID:          uuid.New().String(),
		Raw:         raw,
		Smoothed:    smoothed,
		SourceLabel: sourceLabel,
		ObservedAt:  observedAt.UTC(),
	}
	b, err := json.Marshal(r)
	if err != nil {
		return store.Reading{}, fmt.Errorf("%w: encode reading: %w", store.ErrPersistence, err)
	}
	if err := s.client.LPush(ctx, s.key, b).Err(); err != nil {
		return store.Reading{}, fmt.Errorf("%w: lpush: %w", store.ErrPersistence, err)
	}
	if s.limit > 0 {
		// the reading is already stored; a failed trim only delays the cap
		if err := s.client.LTrim(ctx, s.key, 0, s.limit-1).Err(); err != nil {
			s.log.WithError(err).WithField("key", s.key).Warn("redis history trim failed")
		}
	}
	return r, nil
}

func (s *Store) LatestReading(ctx context.Context) (*store.Reading, error) {
	v, err := s.client.LIndex(ctx, s.key, 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lindex: %w", store.ErrPersistence, err)
	}
	var r store.Reading
	if err := json.Unmarshal([]byte(v), &r); err != nil {
		return nil, fmt.Errorf("%w: decode reading: %w", store.ErrPersistence, err)
	}
	return &r, nil
}
