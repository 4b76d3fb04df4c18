package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"fxrate/internal/config"
	"fxrate/internal/httpx"
	"fxrate/internal/logger"
	"fxrate/internal/publish"
	"fxrate/internal/rate"
	"fxrate/internal/retry"
	"fxrate/internal/smoothing"
	"fxrate/internal/sources"
	"fxrate/internal/store"
	"fxrate/internal/store/memory"
	"fxrate/internal/store/postgres"
	redisstore "fxrate/internal/store/redis"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	log := logger.GetLogger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err, "config")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal(err, "store")
	}
	defer closeStore()

	var pub publish.Publisher = publish.Noop{}
	if cfg.Kafka.Enabled() {
		pub = publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.WithFields(logrus.Fields{"brokers": cfg.Kafka.Brokers, "topic": cfg.Kafka.Topic}).Info("publishing readings to kafka")
	}
	defer pub.Close()

	forced, _ := cfg.Forced()
	if forced != nil {
		log.WithField("rate", *forced).Warn("FX_FORCED_RATE set, marketplaces will not be polled")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	fetchers := sources.Build(cfg, httpClient, log)
	if len(fetchers) == 0 && forced == nil {
		log.Warn("no marketplace enabled; only stored readings can be served")
	}

	svc := rate.New(fetchers, st,
		rate.WithPolicy(retry.Policy{Attempts: cfg.Retry.Attempts, BaseDelay: cfg.RetryBaseDelay()}),
		rate.WithFilter(smoothing.Filter{
			Alpha:   cfg.Smoothing.Alpha,
			Low:     cfg.Smoothing.Low,
			High:    cfg.Smoothing.High,
			MaxJump: cfg.Smoothing.MaxJump,
		}),
		rate.WithFetchTimeout(cfg.FetchTimeout()),
		rate.WithForcedRate(forced),
		rate.WithPublisher(pub),
		rate.WithLogger(log),
	)

	api := http.NewServeMux()
	api.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	api.Handle("/api/fx/rate", rateHandler(svc, log))

	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", withJSONHeaders(withGzip(recoverPanic(log, api))))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// a cold poll may spend the whole fetch timeout plus persistence
		WriteTimeout: cfg.FetchTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "server")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Store) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case config.DriverRedis:
		rdb, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(rdb, cfg.RedisKey, int64(cfg.HistoryLimit)), func() { _ = rdb.Close() }, nil
	default:
		return memory.New(cfg.HistoryLimit), func() {}, nil
	}
}
