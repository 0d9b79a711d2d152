// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/middleware"
	"github.com/tomtom215/vitrine/internal/persona"
)

func newTestServer(t *testing.T, cfg *ChiMiddlewareConfig) *httptest.Server {
	t.Helper()
	h := NewHandler(&fakeEngine{}, &fakeSink{}, fakeModels{})
	srv := httptest.NewServer(NewRouter(h, NewChiMiddleware(cfg), time.Second).SetupChi())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, contentType, body string) *http.Response {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+path, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouter_Routes(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/v1/predict", `{"context":{}}`, http.StatusOK},
		{http.MethodPost, "/api/v1/persona", `{}`, http.StatusOK},
		{http.MethodPost, "/api/v1/personalize", `{"context":{}}`, http.StatusOK},
		{http.MethodPost, "/api/v1/feedback", `{"action":"click","element":"cta"}`, http.StatusAccepted},
		{http.MethodGet, "/api/v1/personas", "", http.StatusOK},
		{http.MethodGet, "/api/v1/persona/unassigned", "", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/persona/unassigned", "", http.StatusNoContent},
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/predict", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if resp.Header.Get(middleware.RequestIDHeader) == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}

func TestRouter_PersonaLookupAndRelease(t *testing.T) {
	engine := &fakeEngine{assigned: map[string]bool{"visitor-1": true}}
	h := NewHandler(engine, nil, nil)
	srv := httptest.NewServer(NewRouter(h, NewChiMiddleware(nil), time.Second).SetupChi())
	t.Cleanup(srv.Close)

	do := func(method, path string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := do(http.MethodGet, "/api/v1/persona/visitor-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup status = %d, want 200", resp.StatusCode)
	}
	var body PersonaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode lookup: %v", err)
	}
	if body.SessionID != "visitor-1" || body.Fresh || body.Persona.ID != persona.DefaultProfile().ID {
		t.Errorf("lookup = %+v, want cached default persona for visitor-1", body)
	}

	if resp := do(http.MethodDelete, "/api/v1/persona/visitor-1"); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("release status = %d, want 204", resp.StatusCode)
	}
	if len(engine.released) != 1 || engine.released[0] != "visitor-1" {
		t.Errorf("released = %v, want [visitor-1]", engine.released)
	}
	if resp := do(http.MethodGet, "/api/v1/persona/visitor-1"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("lookup after release status = %d, want 404", resp.StatusCode)
	}

	// A session ID outside the accepted charset is rejected before the engine.
	if resp := do(http.MethodGet, "/api/v1/persona/bad%20id"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid session status = %d, want 400", resp.StatusCode)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil)
	resp := post(t, srv, "/api/v1/predict", "application/json", `{"context":{}}`)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRouter_BodyLimits(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.MaxBodyBytes = 1024
	srv := newTestServer(t, cfg)

	t.Run("oversized body", func(t *testing.T) {
		big := `{"request_id":"` + strings.Repeat("x", 2048) + `"}`
		resp := post(t, srv, "/api/v1/predict", "application/json", big)
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", resp.StatusCode)
		}
	})

	t.Run("non-json content type", func(t *testing.T) {
		resp := post(t, srv, "/api/v1/predict", "text/plain", `{}`)
		if resp.StatusCode != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", resp.StatusCode)
		}
	})

	t.Run("json with charset", func(t *testing.T) {
		resp := post(t, srv, "/api/v1/predict", "application/json; charset=utf-8", `{"context":{}}`)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	srv := newTestServer(t, cfg)

	before := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/api/v1"))

	var last *http.Response
	for i := 0; i < 3; i++ {
		last = post(t, srv, "/api/v1/predict", "application/json", `{"context":{}}`)
	}
	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.StatusCode)
	}
	if got := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/api/v1")) - before; got != 1 {
		t.Errorf("rate limit hits delta = %v, want 1", got)
	}

	// Probes are outside the limiter.
	resp, err := srv.Client().Get(srv.URL + "/health/live")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("liveness after limit = %d, want 200", resp.StatusCode)
	}
}

func TestRouter_RateLimitDisabled(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitDisabled = true
	srv := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		if resp := post(t, srv, "/api/v1/predict", "application/json", `{"context":{}}`); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, resp.StatusCode)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://shop.example.com"}
	srv := newTestServer(t, cfg)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/personalize", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Session-ID")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
