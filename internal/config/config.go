package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Server struct {
	Port              string `json:"port" env:"PORT" env-description:"HTTP listen port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" env:"REQUEST_TIMEOUT_SEC" env-description:"outbound HTTP timeout"`
}

// Market is the asset/fiat pair every marketplace is asked for.
type Market struct {
	Asset string `json:"asset" env:"FX_ASSET"`
	Fiat  string `json:"fiat" env:"FX_FIAT"`
}

// Source configures one marketplace and its decorators.
type Source struct {
	Enabled               bool   `json:"enabled" env:"ENABLED"`
	Endpoint              string `json:"endpoint" env:"ENDPOINT"`
	Rows                  int    `json:"rows" env:"ROWS"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" env:"MAX_RPM"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" env:"MIN_INTERVAL_SEC"`
	Burst                 int    `json:"burst" env:"BURST"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" env:"CACHE_TTL_SEC"`
	CacheMaxItems         int    `json:"cache_max_items" env:"CACHE_MAX_ITEMS"`
}

type Retry struct {
	Attempts    int `json:"attempts" env:"RETRY_ATTEMPTS"`
	BaseDelayMs int `json:"base_delay_ms" env:"RETRY_BASE_DELAY_MS"`
}

type Smoothing struct {
	Alpha   float64 `json:"alpha" env:"SMOOTHING_ALPHA"`
	Low     float64 `json:"low" env:"SMOOTHING_LOW"`
	High    float64 `json:"high" env:"SMOOTHING_HIGH"`
	MaxJump float64 `json:"max_jump" env:"SMOOTHING_MAX_JUMP"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Store struct {
	Driver        string `json:"driver" env:"STORE_DRIVER" env-description:"memory, postgres or redis"`
	PostgresDSN   string `json:"postgres_dsn" env:"DATABASE_URL"`
	RedisAddr     string `json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `json:"redis_db" env:"REDIS_DB"`
	RedisKey      string `json:"redis_key" env:"REDIS_KEY"`
	// HistoryLimit caps the memory and redis histories; 0 keeps every reading.
	HistoryLimit int `json:"history_limit" env:"STORE_HISTORY_LIMIT"`
}

type Kafka struct {
	Brokers []string `json:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `json:"topic" env:"KAFKA_TOPIC"`
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 && k.Topic != "" }

type Config struct {
	Server          Server    `json:"server"`
	Market          Market    `json:"market"`
	Binance         Source    `json:"binance" env-prefix:"BINANCE_"`
	OKX             Source    `json:"okx" env-prefix:"OKX_"`
	Bybit           Source    `json:"bybit" env-prefix:"BYBIT_"`
	Retry           Retry     `json:"retry"`
	Smoothing       Smoothing `json:"smoothing"`
	Store           Store     `json:"store"`
	Kafka           Kafka     `json:"kafka"`
	LogLevel        string    `json:"log_level" env:"LOG_LEVEL"`
	ForcedRate      string    `json:"forced_rate" env:"FX_FORCED_RATE" env-description:"skip marketplaces and serve this value"`
	FetchTimeoutSec int       `json:"fetch_timeout_sec" env:"FETCH_TIMEOUT_SEC"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Market: Market{Asset: "USDT", Fiat: "VES"},
		Binance: Source{
			Enabled:              true,
			Endpoint:             "https://p2p.binance.com",
			Rows:                 10,
			MaxRequestsPerMinute: 30,
			Burst:                3,
			CacheTTLSeconds:      5,
			CacheMaxItems:        64,
		},
		OKX: Source{
			Enabled:              true,
			Endpoint:             "https://www.okx.com/v3/c2c/tradingOrders/books",
			Rows:                 10,
			MaxRequestsPerMinute: 20,
			Burst:                2,
			CacheTTLSeconds:      5,
			CacheMaxItems:        64,
		},
		Bybit: Source{
			Enabled:              true,
			Endpoint:             "https://api2.bybit.com/fiat/otc/item/online",
			Rows:                 10,
			MaxRequestsPerMinute: 20,
			Burst:                2,
			CacheTTLSeconds:      5,
			CacheMaxItems:        64,
		},
		Retry:           Retry{Attempts: 2, BaseDelayMs: 700},
		Smoothing:       Smoothing{Alpha: 0.6, Low: 1, High: 100000, MaxJump: 25},
		Store:           Store{Driver: DriverMemory, RedisKey: "fxrate:readings"},
		LogLevel:        "info",
		FetchTimeoutSec: 12,
	}
}

// Load reads JSON config from path on top of Default. If path is empty,
// config.json is used when present. Environment variables override file
// values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	fromFile := false
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fromFile = true
		} else if !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if fromFile {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.Driver == DriverRedis && c.Store.RedisAddr == "" {
		errs = append(errs, errors.New("store.redis_addr is required for the redis driver"))
	}
	if c.Smoothing.Low >= c.Smoothing.High {
		errs = append(errs, fmt.Errorf("smoothing.low (%g) must be below smoothing.high (%g)", c.Smoothing.Low, c.Smoothing.High))
	}
	if _, err := c.Forced(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Forced returns the environment-forced rate, or nil when none is set.
// Range checks are left to the rate service.
func (c Config) Forced() (*float64, error) {
	s := strings.TrimSpace(c.ForcedRate)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("forced_rate: %w", err)
	}
	return &v, nil
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond
}

// Usage describes the environment variables understood by Load.
func Usage() string {
	cfg := Default()
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
