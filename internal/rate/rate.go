package rate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fxrate/internal/aggregate"
	"fxrate/internal/logger"
	"fxrate/internal/metrics"
	"fxrate/internal/provider"
	"fxrate/internal/publish"
	"fxrate/internal/retry"
	"fxrate/internal/smoothing"
	"fxrate/internal/store"
)

const (
	LabelManual = "manual"
	LabelEnv    = "env"

	DefaultFetchTimeout = 12 * time.Second
)

// Request selects the book and, optionally, a value that bypasses fetching.
type Request struct {
	Side          provider.Side
	PaymentMethod string
	MinAmount     float64

	// Override skips the marketplaces; OverrideLabel defaults to "manual".
	Override      *float64
	OverrideLabel string

	// Alpha replaces the configured smoothing weight for this call.
	// DisableSmoothing stores smoothed = raw.
	Alpha            *float64
	DisableSmoothing bool
}

// SourceOutcome reports what one marketplace contributed to a response.
type SourceOutcome struct {
	Source   string  `json:"source"`
	Price    float64 `json:"price,omitempty"`
	Method   string  `json:"method,omitempty"`
	Quotes   int     `json:"quotes"`
	Variant  string  `json:"variant,omitempty"`
	Attempts int     `json:"attempts,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func (o SourceOutcome) ok() bool { return o.Error == "" }

type Response struct {
	Raw         float64         `json:"raw"`
	Smoothed    float64         `json:"smoothed"`
	SourceLabel string          `json:"source"`
	ObservedAt  time.Time       `json:"observed_at"`
	FromCache   bool            `json:"from_cache"`
	Warning     string          `json:"warning,omitempty"`
	Sources     []SourceOutcome `json:"sources,omitempty"`
}

// Service computes the current rate from the configured fetchers and keeps
// the reading history in its store.
type Service struct {
	fetchers     []provider.Fetcher
	store        store.Store
	publisher    publish.Publisher
	policy       retry.Policy
	filter       smoothing.Filter
	fetchTimeout time.Duration
	forced       *float64
	now          func() time.Time
	log          logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

func WithPolicy(p retry.Policy) Option {
	return func(s *Service) { s.policy = p }
}

func WithFilter(f smoothing.Filter) Option {
	return func(s *Service) { s.filter = f }
}

// WithFetchTimeout bounds the fan-out phase. Sources still pending when it
// expires count as failed.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithForcedRate makes every request without a manual override use v,
// labelled "env".
func WithForcedRate(v *float64) Option {
	return func(s *Service) { s.forced = v }
}

func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

func New(fetchers []provider.Fetcher, st store.Store, options ...Option) *Service {
	s := &Service{
		fetchers:     fetchers,
		store:        st,
		publisher:    publish.Noop{},
		policy:       retry.Policy{Attempts: 2, BaseDelay: 700 * time.Millisecond},
		filter:       smoothing.Default(),
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, option := range options {
		option(s)
	}
	if s.log == nil {
		s.log = logger.GetLogger()
	}
	if s.policy.Log == nil {
		s.policy.Log = s.log
	}
	return s
}

// GetCurrentRate returns a fresh reading, or the last stored one when every
// marketplace failed.
func (s *Service) GetCurrentRate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	defer func() { metrics.PipelineLatency.Observe(time.Since(start).Seconds()) }()

	if req.Side == "" {
		req.Side = provider.Buy
	}

	raw, label, overridden, err := s.override(req)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("invalid_override").Inc()
		return Response{}, err
	}

	var outcomes []SourceOutcome
	if !overridden {
		var cause error
		raw, label, outcomes, cause = s.collect(ctx, req)
		if cause != nil {
			return s.fallback(ctx, cause, outcomes)
		}
	}

	resp := Response{Raw: raw, SourceLabel: label, Sources: outcomes}
	var warnings []string

	smoothed := raw
	if !req.DisableSmoothing {
		smoothed, warnings = s.smooth(ctx, raw, req.Alpha, warnings)
	}
	resp.Smoothed = aggregate.Round2(smoothed)
	resp.ObservedAt = s.now().UTC()

	reading, err := s.store.AppendReading(ctx, resp.Raw, resp.Smoothed, label, resp.ObservedAt)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("persistence").Inc()
		s.log.WithError(err).Error("reading not persisted")
		warnings = append(warnings, fmt.Sprintf("reading not persisted: %v", err))
	} else {
		resp.ObservedAt = reading.ObservedAt
		if err := s.publisher.PublishReading(ctx, reading); err != nil {
			metrics.ErrorsTotal.WithLabelValues("publish").Inc()
			s.log.WithError(err).WithField("reading_id", reading.ID).Warn("reading event not published")
		}
	}

	metrics.RawRate.Set(resp.Raw)
	metrics.SmoothedRate.Set(resp.Smoothed)
	resp.Warning = strings.Join(warnings, "; ")
	return resp, nil
}

func (s *Service) smooth(ctx context.Context, raw float64, alpha *float64, warnings []string) (float64, []string) {
	filter := s.filter
	if alpha != nil {
		filter.Alpha = *alpha
	}
	prev, err := s.store.LatestReading(ctx)
	if err != nil {
		s.log.WithError(err).Warn("latest reading unavailable, smoothing from scratch")
		warnings = append(warnings, fmt.Sprintf("smoothing history unavailable: %v", err))
		prev = nil
	}
	var prevSmoothed *float64
	if prev != nil {
		prevSmoothed = &prev.Smoothed
	}
	smoothed, outcome := filter.Apply(raw, prevSmoothed)
	if outcome.Reset() && prevSmoothed != nil {
		metrics.SmoothingResets.Inc()
		s.log.WithFields(logrus.Fields{
			"raw":     raw,
			"prev":    *prevSmoothed,
			"outcome": string(outcome),
		}).Info("smoothing reset")
	}
	return smoothed, warnings
}

// override resolves a manual or environment-forced value. The boolean is
// false when the marketplaces must be polled.
func (s *Service) override(req Request) (float64, string, bool, error) {
	v, label := req.Override, req.OverrideLabel
	if v == nil {
		v, label = s.forced, LabelEnv
	} else if label == "" {
		label = LabelManual
	}
	if v == nil {
		return 0, "", false, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0, "", false, newError(CodeInvalidOverride, fmt.Sprintf("override must be a positive finite number, got %v", *v), nil)
	}
	rounded := aggregate.Round2(*v)
	if rounded <= 0 {
		return 0, "", false, newError(CodeInvalidOverride, fmt.Sprintf("override %v rounds to zero", *v), nil)
	}
	return rounded, label, true, nil
}

type sourceResult struct {
	index  int
	result retry.Result
	err    error
}

// collect fans out to every fetcher and reduces the successful ones to one
// price. A non-nil error means no source produced a consensus.
func (s *Service) collect(ctx context.Context, req Request) (float64, string, []SourceOutcome, error) {
	outcomes := make([]SourceOutcome, len(s.fetchers))
	if len(s.fetchers) == 0 {
		return 0, "", outcomes, errors.New("no sources configured")
	}

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	variants := retry.Variants(provider.Request{Side: req.Side, PaymentMethod: req.PaymentMethod, Amount: req.MinAmount})
	ch := make(chan sourceResult, len(s.fetchers))
	for i, f := range s.fetchers {
		outcomes[i].Source = f.Name()
		go func() {
			res, err := s.policy.Do(fctx, f, variants)
			ch <- sourceResult{index: i, result: res, err: err}
		}()
	}

	pending := len(s.fetchers)
	done := make([]bool, len(s.fetchers))
	var errs []error
	take := func(r sourceResult) {
		pending--
		done[r.index] = true
		o, err := s.outcome(outcomes[r.index].Source, r)
		outcomes[r.index] = o
		if err != nil {
			errs = append(errs, err)
		}
	}
	awaitResults(fctx, ch, pending, take)
	if pending > 0 {
		for i := range outcomes {
			if !done[i] {
				outcomes[i].Error = fmt.Sprintf("timed out: %v", fctx.Err())
				errs = append(errs, fmt.Errorf("%s: %w", outcomes[i].Source, fctx.Err()))
				s.log.WithField("source", outcomes[i].Source).Warn("source still pending at fetch deadline")
			}
		}
	}

	var prices []float64
	var names []string
	for _, o := range outcomes {
		if o.ok() {
			prices = append(prices, o.Price)
			names = append(names, o.Source)
		}
	}
	metrics.SourcesSucceeded.Set(float64(len(prices)))
	if len(prices) == 0 {
		return 0, "", outcomes, errors.Join(errs...)
	}

	overall := prices[0]
	if len(prices) > 1 {
		m, err := aggregate.Median(prices)
		if err != nil {
			return 0, "", outcomes, err
		}
		overall = m
	}
	sort.Strings(names)
	return aggregate.Round2(overall), strings.Join(names, ","), outcomes, nil
}

// awaitResults hands each result to take until n have arrived or ctx ends.
// Results already buffered when ctx ends are still delivered.
func awaitResults(ctx context.Context, ch <-chan sourceResult, n int, take func(sourceResult)) {
wait:
	for n > 0 {
		select {
		case r := <-ch:
			take(r)
			n--
		case <-ctx.Done():
			break wait
		}
	}
	for n > 0 {
		select {
		case r := <-ch:
			take(r)
			n--
		default:
			return
		}
	}
}

func (s *Service) outcome(name string, r sourceResult) (SourceOutcome, error) {
	o := SourceOutcome{Source: name}
	if r.err != nil {
		metrics.ErrorsTotal.WithLabelValues("fetch").Inc()
		s.log.WithField("source", name).WithError(r.err).Warn("source failed")
		o.Error = r.err.Error()
		return o, r.err
	}
	price, method, err := aggregate.Consensus(r.result.Quotes)
	if err != nil {
		s.log.WithField("source", name).WithError(err).Warn("no consensus for source")
		o.Error = err.Error()
		return o, fmt.Errorf("%s: %w", name, err)
	}
	o.Price = aggregate.Round2(price)
	o.Method = string(method)
	o.Quotes = len(r.result.Quotes)
	o.Variant = r.result.Variant.String()
	o.Attempts = r.result.Attempt
	return o, nil
}

// fallback serves the latest stored reading after every source failed.
func (s *Service) fallback(ctx context.Context, cause error, outcomes []SourceOutcome) (Response, error) {
	prev, err := s.store.LatestReading(ctx)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("no_data").Inc()
		return Response{}, newError(CodeNoDataAvailable, "all sources failed and the reading store is unavailable", errors.Join(cause, err))
	}
	if prev == nil {
		metrics.ErrorsTotal.WithLabelValues("no_data").Inc()
		return Response{}, newError(CodeNoDataAvailable, "all sources failed and no reading is stored", cause)
	}
	metrics.CacheFallbacks.Inc()
	s.log.WithError(cause).WithField("reading_id", prev.ID).Warn("serving last stored reading")
	return Response{
		Raw:         prev.Raw,
		Smoothed:    prev.Smoothed,
		SourceLabel: prev.SourceLabel,
		ObservedAt:  prev.ObservedAt,
		FromCache:   true,
		Warning:     fmt.Sprintf("all sources failed: %v", cause),
		Sources:     outcomes,
	}, nil
}
