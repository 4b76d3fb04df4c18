package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"fxrate/internal/provider"
	"fxrate/internal/rate"
)

type rateGetter interface {
	GetCurrentRate(ctx context.Context, req rate.Request) (rate.Response, error)
}

type rateResponse struct {
	Side          provider.Side `json:"side"`
	PaymentMethod string        `json:"bank,omitempty"`
	rate.Response
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// rateHandler serves GET /api/fx/rate?side=buy|sell&bank=&min=&test=&alpha=&useEMA=0&pretty.
func rateHandler(svc rateGetter, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, false, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		q := r.URL.Query()
		pretty := q.Has("pretty") && !isFalsy(q.Get("pretty"))

		req := rate.Request{
			Side:          provider.ParseSide(q.Get("side")),
			PaymentMethod: strings.TrimSpace(q.Get("bank")),
		}
		if v := strings.TrimSpace(q.Get("min")); v != "" {
			amount, err := strconv.ParseFloat(v, 64)
			if err != nil || amount < 0 {
				writeError(w, pretty, http.StatusBadRequest, "INVALID_AMOUNT", "min must be a non-negative number")
				return
			}
			req.MinAmount = amount
		}
		if v := strings.TrimSpace(q.Get("test")); v != "" {
			override, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, pretty, http.StatusBadRequest, string(rate.CodeInvalidOverride), "test must be a number")
				return
			}
			req.Override = &override
			req.OverrideLabel = rate.LabelManual
		}
		if v := strings.TrimSpace(q.Get("alpha")); v != "" {
			alpha, err := strconv.ParseFloat(v, 64)
			if err != nil || !(alpha > 0 && alpha <= 1) {
				writeError(w, pretty, http.StatusBadRequest, "INVALID_ALPHA", "alpha must be a number in (0, 1]")
				return
			}
			req.Alpha = &alpha
		}
		req.DisableSmoothing = isFalsy(q.Get("useEMA"))

		resp, err := svc.GetCurrentRate(r.Context(), req)
		if err != nil {
			status, code := http.StatusInternalServerError, "INTERNAL"
			var rerr *rate.Error
			if errors.As(err, &rerr) {
				code = string(rerr.Code)
				switch rerr.Code {
				case rate.CodeInvalidOverride:
					status = http.StatusBadRequest
				case rate.CodeNoDataAvailable:
					status = http.StatusServiceUnavailable
				}
			}
			log.WithError(err).WithField("code", code).Warn("rate request failed")
			writeError(w, pretty, status, code, err.Error())
			return
		}
		writeJSON(w, pretty, http.StatusOK, rateResponse{Side: req.Side, PaymentMethod: req.PaymentMethod, Response: resp})
	})
}

func writeError(w http.ResponseWriter, pretty bool, status int, code, msg string) {
	writeJSON(w, pretty, status, errorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, pretty bool, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func isFalsy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false", "no", "n", "off":
		return true
	}
	return false
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("panic", rec).WithField("path", r.URL.Path).Error("handler panic")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
