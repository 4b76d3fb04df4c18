package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"fxrate/internal/logger"
	"fxrate/internal/store"
)

// fakeList is an in-memory Redis list keyed by name.
type fakeList struct {
	lists   map[string][]string
	pushErr error
	trimErr error
}

func (f *fakeList) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.pushErr != nil {
		return redis.NewIntResult(0, f.pushErr)
	}
	for _, v := range values {
		f.lists[key] = append([]string{string(v.([]byte))}, f.lists[key]...)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeList) LTrim(_ context.Context, key string, start, stop int64) *redis.StatusCmd {
	if f.trimErr != nil {
		return redis.NewStatusResult("", f.trimErr)
	}
	l := f.lists[key]
	if int(stop)+1 < len(l) {
		f.lists[key] = l[start : stop+1]
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeList) LIndex(_ context.Context, key string, index int64) *redis.StringCmd {
	l := f.lists[key]
	if int(index) >= len(l) {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(l[index], nil)
}

func TestStore_AppendAndLatest(t *testing.T) {
	t.Parallel()

	// Arrange
	fake := &fakeList{lists: map[string][]string{}}
	s := New(fake, "", 2)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Act
	latest, err := s.LatestReading(t.Context())
	require.NoError(t, err)
	require.Nil(t, latest)

	for i, raw := range []float64{293.5, 294, 295} {
		_, err := s.AppendReading(t.Context(), raw, raw-0.4, "binance", t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	latest, err = s.LatestReading(t.Context())

	// Assert
	require.NoError(t, err)
	require.Equal(t, 295.0, latest.Raw)
	require.True(t, latest.ObservedAt.Equal(t0.Add(2*time.Minute)))
	require.Len(t, fake.lists[DefaultKey], 2)
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()

	fake := &fakeList{lists: map[string][]string{}, pushErr: errors.New("connection refused")}
	s := New(fake, "k", 0)

	_, err := s.AppendReading(t.Context(), 293, 293, "env", time.Now())
	require.ErrorIs(t, err, store.ErrPersistence)
	require.ErrorContains(t, err, "connection refused")

	fake.lists["k"] = []string{"{broken"}
	_, err = s.LatestReading(t.Context())
	require.ErrorIs(t, err, store.ErrPersistence)
}

func TestStore_TrimFailureKeepsReading(t *testing.T) {
	t.Parallel()

	// Arrange
	fake := &fakeList{lists: map[string][]string{}, trimErr: errors.New("READONLY")}
	s := New(fake, "k", 1).WithLogger(logger.Discard())

	// Act
	r, err := s.AppendReading(t.Context(), 293.5, 293.1, "binance", time.Now())

	// Assert: the push succeeded, so the reading is reported as stored
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)
	latest, err := s.LatestReading(t.Context())
	require.NoError(t, err)
	require.Equal(t, r.ID, latest.ID)
}
