package okx

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
	Name  string
	URL   string
	Base  string // e.g. usdt
	Quote string // e.g. ves
	Limit int
}

// Provider reads the OKX C2C order books. OKX lists advertisements from the
// maker's point of view, so a user "buy" is looked up in the "sell" book.
type Provider struct {
	cfg    Config
	client *httpx.Client
	log    logrus.FieldLogger
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "okx"
	}
	if cfg.URL == "" {
		cfg.URL = "https://www.okx.com/v3/c2c/tradingOrders/books"
	}
	if cfg.Base == "" {
		cfg.Base = "usdt"
	}
	if cfg.Quote == "" {
		cfg.Quote = "ves"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
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
	bookSide := r.Side.Opposite()

	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return nil, provider.Errorf(p.Name(), err)
	}
	q := u.Query()
	q.Set("quoteCurrency", p.cfg.Quote)
	q.Set("baseCurrency", p.cfg.Base)
	q.Set("side", string(bookSide))
	q.Set("paymentMethod", r.PaymentMethod)
	q.Set("userType", "all")
	q.Set("hideOverseasVerificationAds", "false")
	q.Set("sortType", "price_asc")
	q.Set("limit", strconv.Itoa(p.cfg.Limit))
	q.Set("offset", "0")
	if r.Amount > 0 {
		q.Set("quoteMinAmountPerOrder", strconv.FormatFloat(r.Amount, 'f', -1, 64))
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
	if body.Code != 0 && isEmpty(body.Data) {
		return nil, &provider.FetchError{Source: p.Name(), Message: fmt.Sprintf("code=%d msg=%q", body.Code, body.Msg)}
	}

	orders, err := extractOrders(body.Data, bookSide)
	if err != nil {
		return nil, provider.Errorf(p.Name(), err)
	}

	out := make([]provider.Quote, 0, len(orders))
	for _, o := range orders {
		px, err := price.Parse(o.price())
		if err != nil {
			p.log.WithError(err).WithField("source", p.Name()).Debug("dropping quote")
			continue
		}
		out = append(out, provider.Quote{Price: px, Quantity: o.quantity()})
	}
	if len(out) == 0 {
		return nil, provider.Empty(p.Name())
	}
	provider.SortQuotes(out)
	return out, nil
}

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// The books endpoint has changed shape several times. Known layouts:
//
//	data: [ {...}, ... ]
//	data: { "buy": [...], "sell": [...] }
//	data: { "orders": [...] }
type bookData struct {
	Buy    []order `json:"buy"`
	Sell   []order `json:"sell"`
	Orders []order `json:"orders"`
}

type order struct {
	Price           flexString `json:"price"`
	UnitPrice       flexString `json:"unitPrice"`
	QuotePrice      flexString `json:"quotePrice"`
	AvailableAmount flexString `json:"availableAmount"`
}

func (o order) price() string {
	for _, s := range []flexString{o.Price, o.UnitPrice, o.QuotePrice} {
		if strings.TrimSpace(string(s)) != "" {
			return string(s)
		}
	}
	return ""
}

func (o order) quantity() float64 {
	if strings.TrimSpace(string(o.AvailableAmount)) == "" {
		return 0
	}
	v, err := price.Parse(string(o.AvailableAmount))
	if err != nil {
		return 0
	}
	return v
}

func isEmpty(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null" || s == "[]" || s == "{}"
}

func extractOrders(raw json.RawMessage, side provider.Side) ([]order, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []order
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode data list: %w", err)
		}
		return list, nil
	}
	var bd bookData
	if err := json.Unmarshal(raw, &bd); err != nil {
		return nil, fmt.Errorf("decode data object: %w", err)
	}
	switch {
	case side == provider.Buy && len(bd.Buy) > 0:
		return bd.Buy, nil
	case side == provider.Sell && len(bd.Sell) > 0:
		return bd.Sell, nil
	case len(bd.Orders) > 0:
		return bd.Orders, nil
	case len(bd.Buy) > 0:
		return bd.Buy, nil
	}
	return bd.Sell, nil
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(v)
		return nil
	}
	*f = flexString(s)
	return nil
}
