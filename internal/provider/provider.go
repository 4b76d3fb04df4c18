package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Side is the trade direction a quote listing is requested for.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Sell {
		return Buy
	}
	return Sell
}

// ParseSide accepts "buy"/"sell" in any case; anything else falls back to Buy.
func ParseSide(s string) Side {
	if strings.EqualFold(strings.TrimSpace(s), string(Sell)) {
		return Sell
	}
	return Buy
}

// Quote is one marketplace advertisement normalized to canonical units.
// Quantity is the advertised tradable amount; 0 means unknown.
type Quote struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Request is one payload variant sent to a marketplace.
type Request struct {
	Side          Side    `json:"side"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
}

// String renders the variant for logs and diagnostics.
func (r Request) String() string {
	var b strings.Builder
	b.WriteString(string(r.Side))
	if r.PaymentMethod != "" {
		b.WriteString(" pay=")
		b.WriteString(r.PaymentMethod)
	}
	if r.Amount > 0 {
		fmt.Fprintf(&b, " amount=%g", r.Amount)
	}
	return b.String()
}

// Fetcher is implemented by every marketplace. FetchQuotes issues exactly one
// request and returns quotes sorted ascending by price, or an error.
type Fetcher interface {
	Name() string
	FetchQuotes(ctx context.Context, req Request) ([]Quote, error)
}

// ErrNoQuotes is reported when a marketplace answered but nothing usable came back.
var ErrNoQuotes = errors.New("no usable quotes")

// FetchError describes one failed marketplace call. Status is the HTTP status,
// or 0 when the request never got a response.
type FetchError struct {
	Source  string
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Source, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Source, msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Errorf builds a transport-level FetchError.
func Errorf(source string, err error) *FetchError {
	return &FetchError{Source: source, Message: err.Error(), Err: err}
}

// StatusError builds a FetchError for a non-success HTTP answer. The body
// excerpt is trimmed so logs stay readable.
func StatusError(source string, status int, body []byte) *FetchError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256] + "..."
	}
	if msg == "" {
		msg = "unexpected status"
	}
	return &FetchError{Source: source, Status: status, Message: msg}
}

// Empty builds the FetchError used for an empty or unusable payload.
func Empty(source string) *FetchError {
	return &FetchError{Source: source, Message: ErrNoQuotes.Error(), Err: ErrNoQuotes}
}

// SortQuotes orders quotes ascending by price; equal prices keep the larger
// quantity first.
func SortQuotes(qs []Quote) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Price != qs[j].Price {
			return qs[i].Price < qs[j].Price
		}
		return qs[i].Quantity > qs[j].Quantity
	})
}
