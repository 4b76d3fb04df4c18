package ratelimit

import (
	"context"
	"sync"
	"time"

	"fxrate/internal/provider"
)

// MinInterval wraps a fetcher and enforces a minimum time between calls.
// Concurrent calls will wait until the interval has elapsed since the last call,
// or return early if the context is canceled.
type MinInterval struct {
	F        provider.Fetcher
	Interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) Name() string { return m.F.Name() }

func (m *MinInterval) FetchQuotes(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, provider.Errorf(m.F.Name(), ctx.Err())
			case <-t.C:
			}
		}
	}
	qs, err := m.F.FetchQuotes(ctx, req)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return qs, err
}
