package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fxrate/internal/price"
	"fxrate/internal/provider"
)

type searchRequest struct {
	Page           int      `json:"page"`
	Rows           int      `json:"rows"`
	PublisherType  *string  `json:"publisherType"`
	Asset          string   `json:"asset"`
	TradeType      string   `json:"tradeType"`
	Fiat           string   `json:"fiat"`
	TransAmount    string   `json:"transAmount"`
	PayTypes       []string `json:"payTypes"`
	Countries      []string `json:"countries"`
	ProMerchantAds bool     `json:"proMerchantAds"`
}

type searchResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Success bool   `json:"success"`
	Data    []struct {
		Adv struct {
			Price            string `json:"price"`
			TradableQuantity string `json:"tradableQuantity"`
			SurplusAmount    string `json:"surplusAmount"`
		} `json:"adv"`
	} `json:"data"`
}

// FetchQuotes posts one advertisement search and returns the quotes sorted
// ascending by price.
func (c *Client) FetchQuotes(ctx context.Context, r provider.Request) ([]provider.Quote, error) {
	payload := searchRequest{
		Page:      1,
		Rows:      c.rows,
		Asset:     c.asset,
		TradeType: strings.ToUpper(string(r.Side)),
		Fiat:      c.fiat,
		PayTypes:  []string{},
		Countries: []string{},
	}
	if r.Amount > 0 {
		payload.TransAmount = strconv.FormatFloat(r.Amount, 'f', -1, 64)
	}
	if r.PaymentMethod != "" {
		payload.PayTypes = []string{r.PaymentMethod}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.Errorf(c.Name(), fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, provider.Errorf(c.Name(), fmt.Errorf("creating request: %w", err))
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Errorf(c.Name(), fmt.Errorf("performing request: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, provider.StatusError(c.Name(), res.StatusCode, b)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, provider.Errorf(c.Name(), fmt.Errorf("decoding search response: %w", err))
	}
	if sr.Code != "" && sr.Code != "000000" && len(sr.Data) == 0 {
		return nil, &provider.FetchError{Source: c.Name(), Message: fmt.Sprintf("code=%s msg=%q", sr.Code, sr.Message)}
	}

	quotes := make([]provider.Quote, 0, len(sr.Data))
	for _, d := range sr.Data {
		p, err := price.Parse(d.Adv.Price)
		if err != nil {
			c.log.WithError(err).WithField("source", c.Name()).Debug("dropping quote")
			continue
		}
		qty := d.Adv.TradableQuantity
		if qty == "" {
			qty = d.Adv.SurplusAmount
		}
		quotes = append(quotes, provider.Quote{Price: p, Quantity: parseQuantity(qty)})
	}
	if len(quotes) == 0 {
		return nil, provider.Empty(c.Name())
	}
	provider.SortQuotes(quotes)
	return quotes, nil
}

func parseQuantity(s string) float64 {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	v, err := price.Parse(s)
	if err != nil {
		return 0
	}
	return v
}
