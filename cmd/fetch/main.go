package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fxrate/internal/config"
	"fxrate/internal/httpx"
	"fxrate/internal/logger"
	"fxrate/internal/provider"
	"fxrate/internal/rate"
	"fxrate/internal/retry"
	"fxrate/internal/sources"
	"fxrate/internal/store/memory"
)

// fetch polls every enabled marketplace once and prints the per-source
// consensus next to the overall rate. Nothing is persisted.
func main() {
	_ = godotenv.Load()

	var (
		side       string
		bank       string
		minAmount  float64
		only       string
		timeout    int
		configPath string
	)
	flag.StringVar(&side, "side", getenv("FX_SIDE", "buy"), "buy or sell")
	flag.StringVar(&bank, "bank", os.Getenv("FX_BANK"), "payment method filter, e.g. Banesco")
	flag.Float64Var(&minAmount, "min", 0, "minimum transaction amount in fiat")
	flag.StringVar(&only, "sources", "", "comma-separated subset of sources (binance,okx,bybit)")
	flag.IntVar(&timeout, "timeout", 0, "fetch timeout seconds (default from config)")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	log := logger.GetLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal(err, "config")
	}
	logger.SetLevel(cfg.LogLevel)
	if timeout > 0 {
		cfg.FetchTimeoutSec = timeout
	}
	if names := splitCSV(only); len(names) > 0 {
		cfg.Binance.Enabled = contains(names, "binance")
		cfg.OKX.Enabled = contains(names, "okx")
		cfg.Bybit.Enabled = contains(names, "bybit")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	fetchers := sources.Build(cfg, httpClient, log)
	if len(fetchers) == 0 {
		logger.Fatal(fmt.Errorf("no sources enabled"), "fetch")
	}

	svc := rate.New(fetchers, memory.New(1),
		rate.WithPolicy(retry.Policy{Attempts: cfg.Retry.Attempts, BaseDelay: cfg.RetryBaseDelay()}),
		rate.WithFetchTimeout(cfg.FetchTimeout()),
		rate.WithLogger(log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout()+5*time.Second)
	defer cancel()

	resp, err := svc.GetCurrentRate(ctx, rate.Request{
		Side:          provider.ParseSide(side),
		PaymentMethod: bank,
		MinAmount:     minAmount,
	})
	if err != nil {
		logger.Fatal(err, "no rate")
	}
	for _, s := range resp.Sources {
		if s.Error != "" {
			log.WithField("source", s.Source).Warn(s.Error)
			continue
		}
		log.WithField("source", s.Source).Infof("%d quotes, consensus %.2f (%s)", s.Quotes, s.Price, s.Method)
	}

	b, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
