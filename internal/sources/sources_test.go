package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fxrate/internal/config"
	"fxrate/internal/httpx"
	"fxrate/internal/logger"
	"fxrate/internal/provider/cache"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	fetchers := Build(cfg, httpx.New(time.Second), logger.Discard())

	names := make([]string, 0, len(fetchers))
	for _, f := range fetchers {
		names = append(names, f.Name())
		require.IsType(t, &cache.Fetcher{}, f)
	}
	require.Equal(t, []string{"binance", "okx", "bybit"}, names)
}

func TestBuild_DisabledAndUncached(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Binance.Enabled = false
	cfg.Bybit.Enabled = false
	cfg.OKX.CacheTTLSeconds = 0

	fetchers := Build(cfg, httpx.New(time.Second), logger.Discard())
	require.Len(t, fetchers, 1)
	require.Equal(t, "okx", fetchers[0].Name())
	_, cached := fetchers[0].(*cache.Fetcher)
	require.False(t, cached)
}
