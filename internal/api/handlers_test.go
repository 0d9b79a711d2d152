// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vitrine/internal/feedback"
	"github.com/tomtom215/vitrine/internal/middleware"
	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/personalize"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/signals"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// fakeEngine records calls and returns canned results.
type fakeEngine struct {
	mu sync.Mutex

	lastRaw       *signals.RawContext
	lastSessionID string
	lastPersonaID string

	assignErr      error
	personalizeErr error

	assigned map[string]bool
	released []string
}

func (f *fakeEngine) Predict(_ context.Context, raw *signals.RawContext) predict.Response {
	f.mu.Lock()
	f.lastRaw = raw
	f.mu.Unlock()
	return predict.Response{
		Tokens:         tokens.Default(),
		Confidence:     predict.Confidence{Classification: 0.875, Regression: 0.625},
		CacheHit:       true,
		FeatureVersion: "core-v1",
	}
}

func (f *fakeEngine) AssignPersona(_ context.Context, sessionID, personaID string, raw *signals.RawContext) (*persona.AssignResult, error) {
	f.mu.Lock()
	f.lastSessionID, f.lastPersonaID, f.lastRaw = sessionID, personaID, raw
	f.mu.Unlock()
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	if sessionID == "" {
		sessionID = "generated-session"
	}
	breakdown := persona.Breakdown{Region: 20, DeviceAge: 10}
	match := persona.MatchResult{Persona: persona.DefaultProfile(), Score: 30, Breakdown: breakdown}
	return &persona.AssignResult{
		SessionID:  sessionID,
		Persona:    persona.DefaultProfile(),
		Fresh:      true,
		Assignment: persona.Assignment{SessionID: sessionID, ExpiresAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		Match:      &match,
	}, nil
}

func (f *fakeEngine) LookupPersona(_ context.Context, sessionID string) (*persona.AssignResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.assigned[sessionID] {
		return nil, persona.ErrAssignmentNotFound
	}
	return &persona.AssignResult{
		SessionID:  sessionID,
		Persona:    persona.DefaultProfile(),
		Assignment: persona.Assignment{SessionID: sessionID, Source: persona.SourceMatch},
	}, nil
}

func (f *fakeEngine) ReleasePersona(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assigned, sessionID)
	f.released = append(f.released, sessionID)
	return nil
}

func (f *fakeEngine) Personalize(ctx context.Context, req personalize.Request) (*personalize.Result, error) {
	if f.personalizeErr != nil {
		return nil, f.personalizeErr
	}
	res, err := f.AssignPersona(ctx, req.SessionID, req.PersonaID, req.Context)
	if err != nil {
		return nil, err
	}
	return &personalize.Result{
		SessionID:  res.SessionID,
		Tokens:     tokens.Default(),
		MergeMode:  personalize.MergeEnrich,
		Prediction: f.Predict(ctx, req.Context),
		Persona:    res,
	}, nil
}

func (f *fakeEngine) Catalog() *persona.Catalog {
	return persona.DefaultCatalog()
}

type fakeSink struct {
	mu      sync.Mutex
	signals []feedback.Signal
	err     error
}

func (f *fakeSink) Submit(sig feedback.Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.signals = append(f.signals, sig)
	return nil
}

type fakeModels struct {
	status predict.Status
}

func (f fakeModels) Status() predict.Status { return f.status }

func doJSON(t *testing.T, h http.HandlerFunc, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var resp APIResponse
	decodeBody(t, rec, &resp)
	if resp.Success || resp.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %q, want %q", resp.Error.Code, code)
	}
}

func TestPredict(t *testing.T) {
	engine := &fakeEngine{}
	h := NewHandler(engine, nil, nil)

	rec := doJSON(t, h.Predict, `{"context":{"viewport_width":0,"hour":14},"request_id":"r-1"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	for _, key := range []string{"tokens", "confidence", "processing_time_ms", "cache_hit", "fallback", "feature_version"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("response missing %q: %s", key, rec.Body.String())
		}
	}
	if resp["request_id"] != "r-1" {
		t.Errorf("request_id = %v, want r-1", resp["request_id"])
	}
	if engine.lastRaw == nil || engine.lastRaw.ViewportWidth == nil || *engine.lastRaw.ViewportWidth != 0 {
		t.Error("raw context not passed through unchanged")
	}
}

func TestPredict_BadBodies(t *testing.T) {
	h := NewHandler(&fakeEngine{}, nil, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", "", ErrCodeBadRequest},
		{"malformed json", `{"context":`, ErrCodeBadRequest},
		{"request id too long", fmt.Sprintf(`{"request_id":%q}`, strings.Repeat("r", 129)), ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h.Predict, tt.body, nil)
			assertErrorCode(t, rec, http.StatusBadRequest, tt.code)
		})
	}
}

func TestPredict_TolerantContextFields(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, raw *signals.RawContext)
	}{
		{
			name: "fractional viewport",
			body: `{"context":{"viewport_width":390.5}}`,
			check: func(t *testing.T, raw *signals.RawContext) {
				if raw.ViewportWidth == nil || *raw.ViewportWidth != 390 {
					t.Errorf("ViewportWidth = %v, want 390", raw.ViewportWidth)
				}
			},
		},
		{
			name: "integer past int range",
			body: `{"context":{"viewport_width":99999999999999999999}}`,
			check: func(t *testing.T, raw *signals.RawContext) {
				if raw.ViewportWidth == nil || *raw.ViewportWidth <= signals.MaxViewportWidth {
					t.Errorf("ViewportWidth = %v, want saturated above the viewport bound", raw.ViewportWidth)
				}
			},
		},
		{
			name: "numeric string hour",
			body: `{"context":{"hour":"20"}}`,
			check: func(t *testing.T, raw *signals.RawContext) {
				if raw.Hour == nil || *raw.Hour != 20 {
					t.Errorf("Hour = %v, want 20", raw.Hour)
				}
			},
		},
		{
			name: "string boolean",
			body: `{"context":{"touch_enabled":"true"}}`,
			check: func(t *testing.T, raw *signals.RawContext) {
				if raw.TouchEnabled == nil || !*raw.TouchEnabled {
					t.Errorf("TouchEnabled = %v, want true", raw.TouchEnabled)
				}
			},
		},
		{
			name: "unparsable field defaulted",
			body: `{"context":{"hour":"noon","viewport_height":800}}`,
			check: func(t *testing.T, raw *signals.RawContext) {
				if raw.Hour != nil {
					t.Errorf("Hour = %d, want nil for the normalizer to default", *raw.Hour)
				}
				if raw.ViewportHeight == nil || *raw.ViewportHeight != 800 {
					t.Errorf("ViewportHeight = %v, want 800", raw.ViewportHeight)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			h := NewHandler(engine, nil, nil)

			rec := doJSON(t, h.Predict, tt.body, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
			}
			if engine.lastRaw == nil {
				t.Fatal("context not passed to engine")
			}
			tt.check(t, engine.lastRaw)
		})
	}
}

func TestPersona_SessionSource(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		header  string
		wantSID string
	}{
		{"body wins", `{"session_id":"from-body"}`, "from-header", "from-body"},
		{"header fallback", `{}`, "from-header", "from-header"},
		{"empty body uses header", "", "from-header", "from-header"},
		{"neither", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			h := NewHandler(engine, nil, nil)
			headers := map[string]string{}
			if tt.header != "" {
				headers[middleware.SessionIDHeader] = tt.header
			}

			rec := doJSON(t, h.Persona, tt.body, headers)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if engine.lastSessionID != tt.wantSID {
				t.Errorf("session passed to engine = %q, want %q", engine.lastSessionID, tt.wantSID)
			}
		})
	}
}

func TestPersona_Response(t *testing.T) {
	h := NewHandler(&fakeEngine{}, nil, nil)

	rec := doJSON(t, h.Persona, `{"session_id":"s-1"}`, nil)
	var resp PersonaResponse
	decodeBody(t, rec, &resp)

	if resp.SessionID != "s-1" || !resp.Fresh {
		t.Errorf("session/fresh = %q/%v, want s-1/true", resp.SessionID, resp.Fresh)
	}
	if resp.Persona.ID != persona.DefaultProfileID {
		t.Errorf("persona = %q, want %q", resp.Persona.ID, persona.DefaultProfileID)
	}
	if resp.Score == nil || *resp.Score != 30 {
		t.Errorf("score = %v, want 30", resp.Score)
	}
	if resp.Breakdown == nil || resp.Breakdown.Region != 20 {
		t.Errorf("breakdown = %+v, want region 20", resp.Breakdown)
	}
}

func TestPersona_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		assignErr error
		status    int
		code      string
	}{
		{"invalid session id", `{"session_id":"has spaces"}`, nil, http.StatusBadRequest, ErrCodeValidationFailed},
		{"unknown persona", `{"persona_id":"ghost"}`, fmt.Errorf("%w: ghost", persona.ErrPersonaNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"store failure", `{}`, errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeEngine{assignErr: tt.assignErr}, nil, nil)
			rec := doJSON(t, h.Persona, tt.body, nil)
			assertErrorCode(t, rec, tt.status, tt.code)
		})
	}
}

func TestPersonalize(t *testing.T) {
	engine := &fakeEngine{}
	h := NewHandler(engine, nil, nil)

	rec := doJSON(t, h.Personalize, `{"persona_id":"default","context":{"hour":9}}`,
		map[string]string{middleware.SessionIDHeader: "hdr-session"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp PersonalizeResponse
	decodeBody(t, rec, &resp)
	if resp.SessionID != "hdr-session" {
		t.Errorf("session = %q, want hdr-session", resp.SessionID)
	}
	if resp.MergeMode != personalize.MergeEnrich {
		t.Errorf("merge mode = %q", resp.MergeMode)
	}
	if resp.Persona.SessionID != "hdr-session" {
		t.Errorf("persona session = %q", resp.Persona.SessionID)
	}
	if engine.lastPersonaID != "default" {
		t.Errorf("persona override = %q, want default", engine.lastPersonaID)
	}
}

func TestPersonalize_UnknownPersona(t *testing.T) {
	h := NewHandler(&fakeEngine{personalizeErr: persona.ErrPersonaNotFound}, nil, nil)
	rec := doJSON(t, h.Personalize, `{"persona_id":"ghost"}`, nil)
	assertErrorCode(t, rec, http.StatusNotFound, ErrCodeNotFound)
}

func TestFeedback(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		sinkErr error
		status  int
		code    string
	}{
		{"accepted", `{"action":"click","element":"hero-cta","session_duration":12.5}`, nil, http.StatusAccepted, ""},
		{"missing action", `{"element":"hero-cta"}`, nil, http.StatusBadRequest, ErrCodeValidationFailed},
		{"negative duration", `{"action":"click","element":"x","session_duration":-1}`, nil, http.StatusBadRequest, ErrCodeValidationFailed},
		{"buffer full", `{"action":"click","element":"x"}`, feedback.ErrBufferFull, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"empty body", "", nil, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{err: tt.sinkErr}
			h := NewHandler(&fakeEngine{}, sink, nil)

			rec := doJSON(t, h.Feedback, tt.body, map[string]string{middleware.SessionIDHeader: "s-9"})
			if tt.code == "" {
				if rec.Code != tt.status {
					t.Fatalf("status = %d, want %d", rec.Code, tt.status)
				}
				if len(sink.signals) != 1 || sink.signals[0].SessionID != "s-9" {
					t.Errorf("submitted signals = %+v", sink.signals)
				}
				return
			}
			assertErrorCode(t, rec, tt.status, tt.code)
		})
	}
}

func TestFeedback_Disabled(t *testing.T) {
	h := NewHandler(&fakeEngine{}, nil, nil)
	rec := doJSON(t, h.Feedback, `{"action":"click","element":"x"}`, nil)
	assertErrorCode(t, rec, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)
}

func TestPersonas(t *testing.T) {
	h := NewHandler(&fakeEngine{}, nil, nil)
	rec := httptest.NewRecorder()
	h.Personas(rec, httptest.NewRequest(http.MethodGet, "/api/v1/personas", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Success bool                   `json:"success"`
		Data    PersonaCatalogResponse `json:"data"`
	}
	decodeBody(t, rec, &resp)

	catalog := persona.DefaultCatalog()
	if !resp.Success || resp.Data.Version != catalog.Version() {
		t.Errorf("version = %q, want %q", resp.Data.Version, catalog.Version())
	}
	if len(resp.Data.Personas) != catalog.Len() {
		t.Errorf("listed %d personas, want %d", len(resp.Data.Personas), catalog.Len())
	}
}

func TestHealthReady(t *testing.T) {
	loaded := predict.Status{ClassifierLoaded: true, RegressorLoaded: true, BreakerState: "closed"}

	tests := []struct {
		name       string
		models     ModelStatus
		draining   bool
		wantCode   int
		wantStatus string
	}{
		{"models loaded", fakeModels{loaded}, false, http.StatusOK, HealthReady},
		{"no model status", nil, false, http.StatusOK, HealthReady},
		{"models missing", fakeModels{predict.Status{BreakerState: "closed"}}, false, http.StatusOK, HealthDegraded},
		{"breaker open", fakeModels{predict.Status{ClassifierLoaded: true, RegressorLoaded: true, BreakerState: "open"}}, false, http.StatusOK, HealthDegraded},
		{"draining", fakeModels{loaded}, true, http.StatusServiceUnavailable, HealthDraining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeEngine{}, nil, tt.models)
			if tt.draining {
				h.SetDraining()
			}

			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp struct {
				Data ReadinessStatus `json:"data"`
			}
			decodeBody(t, rec, &resp)
			if resp.Data.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Data.Status, tt.wantStatus)
			}
			if resp.Data.Personas != persona.DefaultCatalog().Len() {
				t.Errorf("personas = %d", resp.Data.Personas)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	h := NewHandler(&fakeEngine{}, nil, nil)
	h.SetDraining()

	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness while draining = %d, want 200", rec.Code)
	}
}
