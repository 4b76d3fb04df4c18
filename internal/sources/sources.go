package sources

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fxrate/internal/config"
	"fxrate/internal/httpx"
	"fxrate/internal/provider"
	"fxrate/internal/provider/binance"
	"fxrate/internal/provider/bybit"
	"fxrate/internal/provider/cache"
	"fxrate/internal/provider/okx"
	"fxrate/internal/provider/ratelimit"
)

// Build returns the enabled marketplaces, each wrapped with its rate limiter
// and quote cache.
func Build(cfg config.Config, hc *httpx.Client, log logrus.FieldLogger) []provider.Fetcher {
	var out []provider.Fetcher
	if cfg.Binance.Enabled {
		b := binance.New(
			binance.WithBaseURL(cfg.Binance.Endpoint),
			binance.WithHTTPClient(hc.HTTP),
			binance.WithHeader(http.Header{"User-Agent": []string{hc.UserAgent}}),
			binance.WithMarket(cfg.Market.Asset, cfg.Market.Fiat),
			binance.WithRows(cfg.Binance.Rows),
			binance.WithLogger(log),
		)
		out = append(out, decorate(b, cfg.Binance))
	}
	if cfg.OKX.Enabled {
		o := okx.New(okx.Config{
			URL:   cfg.OKX.Endpoint,
			Base:  strings.ToLower(cfg.Market.Asset),
			Quote: strings.ToLower(cfg.Market.Fiat),
			Limit: cfg.OKX.Rows,
		}, hc).WithLogger(log)
		out = append(out, decorate(o, cfg.OKX))
	}
	if cfg.Bybit.Enabled {
		b := bybit.New(bybit.Config{
			URL:      cfg.Bybit.Endpoint,
			TokenID:  strings.ToUpper(cfg.Market.Asset),
			Currency: strings.ToUpper(cfg.Market.Fiat),
			Size:     cfg.Bybit.Rows,
		}, hc).WithLogger(log)
		out = append(out, decorate(b, cfg.Bybit))
	}
	for _, f := range out {
		log.WithField("source", f.Name()).Debug("source enabled")
	}
	return out
}

func decorate(f provider.Fetcher, sc config.Source) provider.Fetcher {
	f = ratelimit.Wrap(f, sc.MaxRequestsPerMinute, sc.Burst, time.Duration(sc.MinRequestIntervalSec)*time.Second)
	if sc.CacheTTLSeconds > 0 {
		f = &cache.Fetcher{F: f, TTL: time.Duration(sc.CacheTTLSeconds) * time.Second, MaxItems: sc.CacheMaxItems}
	}
	return f
}
