package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fxrate/internal/provider"
)

type countingFetcher struct{ calls atomic.Int32 }

func (c *countingFetcher) Name() string { return "counting" }
func (c *countingFetcher) FetchQuotes(_ context.Context, _ provider.Request) ([]provider.Quote, error) {
	c.calls.Add(1)
	return []provider.Quote{{Price: 1}}, nil
}

func TestTokenBucketFetcher_BurstThenBlocks(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{}
	tb := &TokenBucketFetcher{F: f, TB: NewTokenBucket(0.001, 2)}

	for i := 0; i < 2; i++ {
		_, err := tb.FetchQuotes(t.Context(), provider.Request{Side: provider.Buy})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := tb.FetchQuotes(ctx, provider.Request{Side: provider.Buy})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, int32(2), f.calls.Load())
}

func TestMinInterval_WaitsBetweenCalls(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{}
	m := &MinInterval{F: f, Interval: 30 * time.Millisecond}

	start := time.Now()
	_, err := m.FetchQuotes(t.Context(), provider.Request{})
	require.NoError(t, err)
	_, err = m.FetchQuotes(t.Context(), provider.Request{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	require.Equal(t, "counting", m.Name())
}

func TestWrap(t *testing.T) {
	t.Parallel()

	f := &countingFetcher{}
	require.IsType(t, &TokenBucketFetcher{}, Wrap(f, 60, 1, time.Second))
	require.IsType(t, &MinInterval{}, Wrap(f, 0, 0, time.Second))
	require.Same(t, f, Wrap(f, 0, 0, 0))
}
