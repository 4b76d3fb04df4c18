package okx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrate/internal/httpx"
	"fxrate/internal/logger"
	"fxrate/internal/provider"
)

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL + "/v3/c2c/tradingOrders/books"}, httpx.New(2*time.Second)).WithLogger(logger.Discard())
}

func TestFetchQuotes_ListShape_OppositeSide(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "sell", q.Get("side"))
		assert.Equal(t, "ves", q.Get("quoteCurrency"))
		assert.Equal(t, "usdt", q.Get("baseCurrency"))
		assert.Equal(t, "1000", q.Get("quoteMinAmountPerOrder"))
		_, _ = w.Write([]byte(`{"code":0,"data":[
			{"price":"291.40","availableAmount":"12.5"},
			{"price":290.9,"availableAmount":"4"},
			{"price":"n/a"}
		]}`))
	})

	quotes, err := p.FetchQuotes(t.Context(), provider.Request{Side: provider.Buy, Amount: 1000})
	require.NoError(t, err)
	require.Equal(t, []provider.Quote{{Price: 290.9, Quantity: 4}, {Price: 291.40, Quantity: 12.5}}, quotes)
}

func TestFetchQuotes_ObjectShapes(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "buy", r.URL.Query().Get("side"))
		_, _ = w.Write([]byte(`{"code":0,"data":{"buy":[{"unitPrice":"289,50"}],"sell":[{"price":"999"}]}}`))
	})
	quotes, err := p.FetchQuotes(t.Context(), provider.Request{Side: provider.Sell})
	require.NoError(t, err)
	require.Equal(t, []provider.Quote{{Price: 289.50}}, quotes)

	orders := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":{"orders":[{"quotePrice":"300.10","availableAmount":"2"}]}}`))
	})
	quotes, err = orders.FetchQuotes(t.Context(), provider.Request{Side: provider.Buy})
	require.NoError(t, err)
	require.Equal(t, []provider.Quote{{Price: 300.10, Quantity: 2}}, quotes)
}

func TestFetchQuotes_Failures(t *testing.T) {
	t.Parallel()

	notFound := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "endpoint moved", http.StatusNotFound)
	})
	_, err := notFound.FetchQuotes(t.Context(), provider.Request{Side: provider.Buy})
	var fe *provider.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusNotFound, fe.Status)
	require.Equal(t, "endpoint moved", fe.Message)

	empty := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":[]}`))
	})
	_, err = empty.FetchQuotes(t.Context(), provider.Request{Side: provider.Buy})
	require.ErrorIs(t, err, provider.ErrNoQuotes)

	apiErr := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":50011,"msg":"too many requests","data":null}`))
	})
	_, err = apiErr.FetchQuotes(t.Context(), provider.Request{Side: provider.Buy})
	require.ErrorContains(t, err, "code=50011")
	require.ErrorAs(t, err, &fe)
	require.Zero(t, fe.Status)

	garbage := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err = garbage.FetchQuotes(t.Context(), provider.Request{Side: provider.Buy})
	require.ErrorContains(t, err, "decode")
}
