package httpx

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Client is a small wrapper around http.Client with sane defaults.
// Marketplace endpoints are picky about headers, so Headers is applied to
// every request that does not set them itself.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

// BrowserHeaders are the headers the P2P listing endpoints expect from a web client.
var BrowserHeaders = map[string]string{
	"Accept":          "application/json",
	"Accept-Language": "es-ES,es;q=0.9",
	"Cache-Control":   "no-cache",
}

func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 8 * time.Second,
	}
	headers := make(map[string]string, len(BrowserHeaders))
	for k, v := range BrowserHeaders {
		headers[k] = v
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: transport},
		UserAgent: "fxrate/1.0",
		Headers:   headers,
	}
}

func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Context() != ctx && ctx != nil {
		req = req.WithContext(ctx)
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req)
}
