package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fxrate/internal/logger"
	"fxrate/internal/metrics"
	"fxrate/internal/provider"
)

// Policy drives a single fetcher through payload variants and attempts.
// Attempts never overlap; between two failed sweeps over the variants the
// policy waits BaseDelay * attempt.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration

	// Sleep is replaced in tests. It must return ctx.Err() when ctx ends first.
	Sleep func(ctx context.Context, d time.Duration) error
	Log   logrus.FieldLogger
}

// Result is the first usable answer and the variant that produced it.
type Result struct {
	Source  string
	Quotes  []provider.Quote
	Variant provider.Request
	Attempt int
}

// Variants lists the payloads tried for one base request, in order:
// as asked, without the amount filter, without the payment filter, and the
// opposite side of the book as a liquidity fallback.
func Variants(base provider.Request) []provider.Request {
	out := []provider.Request{base}
	seen := map[provider.Request]bool{base: true}
	add := func(r provider.Request) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if base.Amount > 0 {
		add(provider.Request{Side: base.Side, PaymentMethod: base.PaymentMethod})
	}
	if base.PaymentMethod != "" {
		add(provider.Request{Side: base.Side})
	}
	add(provider.Request{Side: base.Side.Opposite()})
	return out
}

// Do returns the first variant result with at least one quote. When every
// variant fails on every attempt the returned error wraps the last failure.
func (p Policy) Do(ctx context.Context, f provider.Fetcher, variants []provider.Request) (Result, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	log := p.Log
	if log == nil {
		log = logger.GetLogger()
	}
	if len(variants) == 0 {
		return Result{}, fmt.Errorf("%s: no request variants", f.Name())
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		for _, v := range variants {
			if err := ctx.Err(); err != nil {
				return Result{}, exhausted(f.Name(), attempt, lastErr, err)
			}
			start := time.Now()
			quotes, err := f.FetchQuotes(ctx, v)
			metrics.FetchDuration.WithLabelValues(f.Name()).Observe(time.Since(start).Seconds())
			if err == nil && len(quotes) == 0 {
				err = provider.Empty(f.Name())
			}
			if err == nil {
				metrics.FetchTotal.WithLabelValues(f.Name(), "ok").Inc()
				return Result{Source: f.Name(), Quotes: quotes, Variant: v, Attempt: attempt}, nil
			}
			metrics.FetchTotal.WithLabelValues(f.Name(), "error").Inc()
			lastErr = err
			log.WithFields(logrus.Fields{
				"source":  f.Name(),
				"attempt": attempt,
				"variant": v.String(),
			}).WithError(err).Debug("fetch attempt failed")
		}
		if attempt < attempts {
			if err := sleep(ctx, p.BaseDelay*time.Duration(attempt)); err != nil {
				return Result{}, exhausted(f.Name(), attempt, lastErr, err)
			}
		}
	}
	return Result{}, exhausted(f.Name(), attempts, lastErr, nil)
}

// ExhaustedError is returned once a fetcher has no attempts left.
type ExhaustedError struct {
	Source   string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempt(s): %v", e.Source, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func exhausted(source string, attempts int, last, ctxErr error) error {
	switch {
	case last == nil:
		last = ctxErr
	case ctxErr != nil:
		last = errors.Join(last, ctxErr)
	}
	return &ExhaustedError{Source: source, Attempts: attempts, Last: last}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
