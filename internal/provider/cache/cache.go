package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fxrate/internal/provider"
)

// entry stores the quotes of one request variant with expiry.
type entry struct {
	expiresAt time.Time
	quotes    []provider.Quote
}

// Fetcher caches successful results per request variant for a TTL.
// Concurrent misses for the same variant share one upstream call.
// Failures are never cached, so the retry loop always reaches the marketplace.
type Fetcher struct {
	F        provider.Fetcher
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[provider.Request]entry
	sf    singleflight.Group
}

func (c *Fetcher) Name() string { return c.F.Name() }

func (c *Fetcher) FetchQuotes(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	if c.TTL <= 0 {
		return c.F.FetchQuotes(ctx, req)
	}

	if qs, ok := c.lookup(req, time.Now()); ok {
		return qs, nil
	}

	v, err, _ := c.sf.Do(req.String(), func() (any, error) {
		qs, err := c.F.FetchQuotes(ctx, req)
		if err != nil {
			return nil, err
		}
		c.store(req, qs)
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]provider.Quote)), nil
}

func (c *Fetcher) lookup(req provider.Request, now time.Time) ([]provider.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[req]
	if !ok || !now.Before(e.expiresAt) {
		return nil, false
	}
	return clone(e.quotes), true
}

func (c *Fetcher) store(req provider.Request, qs []provider.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[provider.Request]entry)
	}
	now := time.Now()
	c.items[req] = entry{expiresAt: now.Add(c.TTL), quotes: clone(qs)}

	// best-effort cap: drop expired first, then arbitrary keys
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if k != req {
				delete(c.items, k)
			}
		}
	}
}

func clone(qs []provider.Quote) []provider.Quote {
	out := make([]provider.Quote, len(qs))
	copy(out, qs)
	return out
}
