package binance

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"fxrate/internal/logger"
)

const (
	baseURL    = "https://p2p.binance.com"
	searchPath = "/bapi/c2c/v2/friendly/c2c/adv/search"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=binance_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries the Binance P2P advertisement search.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// asset and fiat select the book, e.g. USDT/VES.
	asset string
	fiat  string
	// rows is the page size requested from the search.
	rows int

	log logrus.FieldLogger
}

// Option is a configuration option for the Binance client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithMarket selects the asset/fiat pair.
func WithMarket(asset, fiat string) Option {
	return func(c *Client) {
		if asset != "" {
			c.asset = asset
		}
		if fiat != "" {
			c.fiat = fiat
		}
	}
}

// WithRows sets how many advertisements are requested per call.
func WithRows(rows int) Option {
	return func(c *Client) {
		if rows > 0 {
			c.rows = rows
		}
	}
}

// WithLogger sets the logger used for dropped quotes.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a new Binance P2P client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header: http.Header{
			"Content-Type":    []string{"application/json"},
			"Accept-Language": []string{"es-ES,es;q=0.9"},
			"Cache-Control":   []string{"no-cache"},
			// the search endpoint rejects some server-side calls without it
			"Clienttype": []string{"web"},
		},
		asset: "USDT",
		fiat:  "VES",
		rows:  10,
	}
	for _, option := range options {
		option(c)
	}
	if c.log == nil {
		c.log = logger.GetLogger()
	}
	return c
}

func (c *Client) Name() string { return "binance" }
