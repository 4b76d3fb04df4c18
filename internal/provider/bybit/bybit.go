package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"fxrate/internal/httpx"
	"fxrate/internal/logger"
	"fxrate/internal/price"
	"fxrate/internal/provider"
)

type Config struct {
	Name     string
	URL      string
	TokenID  string // e.g. USDT
	Currency string // e.g. VES
	Size     int
}

// Provider reads the Bybit P2P (OTC) advertisement listing.
type Provider struct {
	cfg    Config
	client *httpx.Client
	log    logrus.FieldLogger
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "bybit"
	}
	if cfg.URL == "" {
		cfg.URL = "https://api2.bybit.com/fiat/otc/item/online"
	}
	if cfg.TokenID == "" {
		cfg.TokenID = "USDT"
	}
	if cfg.Currency == "" {
		cfg.Currency = "VES"
	}
	if cfg.Size <= 0 {
		cfg.Size = 10
	}
	return &Provider{cfg: cfg, client: hc, log: logger.GetLogger()}
}

func (p *Provider) Name() string { return p.cfg.Name }

// WithLogger replaces the logger used for dropped quotes.
func (p *Provider) WithLogger(l logrus.FieldLogger) *Provider {
	p.log = l
	return p
}

func (p *Provider) FetchQuotes(ctx context.Context, r provider.Request) ([]provider.Quote, error) {
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return nil, provider.Errorf(p.Name(), err)
	}
	q := u.Query()
	q.Set("tokenId", p.cfg.TokenID)
	q.Set("currencyId", p.cfg.Currency)
	q.Set("side", sideParam(r.Side))
	payment := "0"
	if r.PaymentMethod != "" {
		payment = r.PaymentMethod
	}
	q.Set("payment", payment)
	q.Set("size", strconv.Itoa(p.cfg.Size))
	q.Set("page", "1")
	if r.Amount > 0 {
		q.Set("amount", strconv.FormatFloat(r.Amount, 'f', -1, 64))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, provider.Errorf(p.Name(), err)
	}
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, provider.Errorf(p.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, provider.StatusError(p.Name(), resp.StatusCode, b)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, provider.Errorf(p.Name(), fmt.Errorf("decode: %w", err))
	}
	if body.RetCode != 0 {
		return nil, &provider.FetchError{Source: p.Name(), Message: fmt.Sprintf("ret_code=%d ret_msg=%q", body.RetCode, body.RetMsg)}
	}

	out := make([]provider.Quote, 0, len(body.Result.Items))
	for _, it := range body.Result.Items {
		px, err := price.Parse(it.Price)
		if err != nil {
			p.log.WithError(err).WithField("source", p.Name()).Debug("dropping quote")
			continue
		}
		out = append(out, provider.Quote{Price: px, Quantity: quantity(it)})
	}
	if len(out) == 0 {
		return nil, provider.Empty(p.Name())
	}
	provider.SortQuotes(out)
	return out, nil
}

// side=1 is BUY and side=0 is SELL on this endpoint.
func sideParam(s provider.Side) string {
	if s == provider.Sell {
		return "0"
	}
	return "1"
}

type apiResponse struct {
	RetCode int    `json:"ret_code"`
	RetMsg  string `json:"ret_msg"`
	Result  struct {
		Count int    `json:"count"`
		Items []item `json:"items"`
	} `json:"result"`
}

type item struct {
	Price        string `json:"price"`
	LastQuantity string `json:"lastQuantity"`
	Quantity     string `json:"quantity"`
}

func quantity(it item) float64 {
	for _, s := range []string{it.LastQuantity, it.Quantity} {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if v, err := price.Parse(s); err == nil {
			return v
		}
	}
	return 0
}
