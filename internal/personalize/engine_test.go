// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package personalize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/features"
	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/signals"
	"github.com/tomtom215/vitrine/internal/tokens"
)

type fakePredictor struct {
	resp  predict.Response
	calls int
	mu    sync.Mutex
}

func (f *fakePredictor) Predict(_ context.Context, v features.Vector) predict.Response {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	resp := f.resp
	resp.Fingerprint = v.Fingerprint()
	return resp
}

type fakeAssigner struct {
	profile persona.Profile
	err     error
	lastReq persona.AssignRequest
}

func (f *fakeAssigner) Assign(_ context.Context, req persona.AssignRequest) (*persona.AssignResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &persona.AssignResult{SessionID: req.SessionID, Persona: f.profile, Fresh: true}, nil
}

func (f *fakeAssigner) Lookup(_ context.Context, sessionID string) (*persona.AssignResult, error) {
	if f.lastReq.SessionID != sessionID {
		return nil, persona.ErrAssignmentNotFound
	}
	return &persona.AssignResult{SessionID: sessionID, Persona: f.profile}, nil
}

func (f *fakeAssigner) Release(_ context.Context, sessionID string) error {
	if f.lastReq.SessionID == sessionID {
		f.lastReq = persona.AssignRequest{}
	}
	return nil
}

func (f *fakeAssigner) Catalog() *persona.Catalog { return persona.DefaultCatalog() }

func fixedNormalizer() *signals.Normalizer {
	return signals.NewNormalizer(signals.WithClock(func() time.Time {
		return time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)
	}))
}

func newTestEngine(t *testing.T, p Predictor, a PersonaAssigner) *Engine {
	t.Helper()
	synth, err := tokens.NewSynthesizer(tokens.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewSynthesizer() error = %v", err)
	}
	e, err := NewEngine(fixedNormalizer(), features.NewBuilder(features.AllGroups), p, a, synth, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func modelResponse(confidence float64) predict.Response {
	return predict.Response{
		Tokens: tokens.New(
			[]string{"density-compact", "typography-mono", "color-mode-dark"},
			map[string]string{tokens.VarSpacingUnit: "4px", tokens.VarFontSizeBase: "15px"},
		),
		Confidence: predict.Confidence{Classification: confidence, Regression: 0.6},
	}
}

func TestNewEngine_Validation(t *testing.T) {
	synth, _ := tokens.NewSynthesizer(tokens.DefaultPolicy())
	n := fixedNormalizer()
	b := features.NewBuilder(features.CoreGroups)
	p := &fakePredictor{}
	a := &fakeAssigner{}

	tests := []struct {
		name string
		make func() (*Engine, error)
	}{
		{"nil normalizer", func() (*Engine, error) { return NewEngine(nil, b, p, a, synth, DefaultConfig(), zerolog.Nop()) }},
		{"nil builder", func() (*Engine, error) { return NewEngine(n, nil, p, a, synth, DefaultConfig(), zerolog.Nop()) }},
		{"nil predictor", func() (*Engine, error) { return NewEngine(n, b, nil, a, synth, DefaultConfig(), zerolog.Nop()) }},
		{"nil assigner", func() (*Engine, error) { return NewEngine(n, b, p, nil, synth, DefaultConfig(), zerolog.Nop()) }},
		{"nil synthesizer", func() (*Engine, error) { return NewEngine(n, b, p, a, nil, DefaultConfig(), zerolog.Nop()) }},
		{"threshold above one", func() (*Engine, error) {
			return NewEngine(n, b, p, a, synth, Config{ConfidenceThreshold: 1.5}, zerolog.Nop())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.make(); err == nil {
				t.Error("NewEngine() error = nil, want error")
			}
		})
	}
}

func TestPersonalize_MergePolicy(t *testing.T) {
	confident := modelResponse(0.9)
	unsure := modelResponse(0.3)
	fallback := predict.Response{Tokens: tokens.Default(), Fallback: true, FallbackReason: predict.ReasonTimeout}

	tests := []struct {
		name        string
		resp        predict.Response
		wantMode    string
		wantDensity string
		wantSpacing string
	}{
		{"confident model keeps its tokens", confident, MergeEnrich, "density-compact", "4px"},
		{"low confidence lets persona win", unsure, MergeOverlay, "density-comfortable", "8px"},
		{"fallback lets persona win", fallback, MergeOverlay, "density-comfortable", "8px"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, &fakePredictor{resp: tt.resp}, &fakeAssigner{profile: persona.DefaultProfile()})

			res, err := e.Personalize(context.Background(), Request{SessionID: "s-1"})
			if err != nil {
				t.Fatalf("Personalize() error = %v", err)
			}
			if res.MergeMode != tt.wantMode {
				t.Errorf("MergeMode = %s, want %s", res.MergeMode, tt.wantMode)
			}
			if got, _ := res.Tokens.ClassInGroup("density"); got != tt.wantDensity {
				t.Errorf("density class = %s, want %s", got, tt.wantDensity)
			}
			if got, _ := res.Tokens.Variable(tokens.VarSpacingUnit); got != tt.wantSpacing {
				t.Errorf("spacing = %s, want %s", got, tt.wantSpacing)
			}
			// Persona-only groups are always present.
			for _, group := range []string{"motion", "layout", "font-scale"} {
				if _, ok := res.Tokens.ClassInGroup(group); !ok {
					t.Errorf("merged tokens missing %s group: %v", group, res.Tokens.Classes())
				}
			}
		})
	}
}

func TestPersonalize_ThresholdBoundary(t *testing.T) {
	e := newTestEngine(t, &fakePredictor{resp: modelResponse(DefaultConfidenceThreshold)}, &fakeAssigner{profile: persona.DefaultProfile()})

	res, err := e.Personalize(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Personalize() error = %v", err)
	}
	if res.MergeMode != MergeEnrich {
		t.Errorf("MergeMode at threshold = %s, want %s", res.MergeMode, MergeEnrich)
	}
}

func TestPersonalize_SessionIDShared(t *testing.T) {
	a := &fakeAssigner{profile: persona.DefaultProfile()}
	e := newTestEngine(t, &fakePredictor{resp: modelResponse(0.9)}, a)

	res, err := e.Personalize(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Personalize() error = %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("SessionID not generated")
	}
	if a.lastReq.SessionID != res.SessionID {
		t.Errorf("assigner saw session %q, result has %q", a.lastReq.SessionID, res.SessionID)
	}
	if a.lastReq.Context == nil {
		t.Error("assigner did not receive the normalized context")
	}
}

func TestPersonalize_AssignmentErrors(t *testing.T) {
	t.Run("unknown persona is returned", func(t *testing.T) {
		err := fmt.Errorf("%w: ghost", persona.ErrPersonaNotFound)
		e := newTestEngine(t, &fakePredictor{resp: modelResponse(0.9)}, &fakeAssigner{err: err})

		_, got := e.Personalize(context.Background(), Request{PersonaID: "ghost"})
		if !errors.Is(got, persona.ErrPersonaNotFound) {
			t.Errorf("Personalize() error = %v, want ErrPersonaNotFound", got)
		}
	})

	t.Run("store failure degrades to default persona", func(t *testing.T) {
		e := newTestEngine(t, &fakePredictor{resp: modelResponse(0.9)}, &fakeAssigner{err: errors.New("disk full")})

		res, err := e.Personalize(context.Background(), Request{SessionID: "s-2"})
		if err != nil {
			t.Fatalf("Personalize() error = %v", err)
		}
		if res.Persona.Persona.ID != persona.DefaultProfileID {
			t.Errorf("persona = %s, want %s", res.Persona.Persona.ID, persona.DefaultProfileID)
		}
	})
}

func TestEngine_AssignPersona(t *testing.T) {
	a := &fakeAssigner{profile: persona.DefaultProfile()}
	e := newTestEngine(t, &fakePredictor{}, a)

	if _, err := e.AssignPersona(context.Background(), "s-3", "", nil); err != nil {
		t.Fatalf("AssignPersona() error = %v", err)
	}
	if a.lastReq.Context != nil {
		t.Error("nil raw context should pass a nil context to the assigner")
	}

	width := 390
	if _, err := e.AssignPersona(context.Background(), "s-3", "", &signals.RawContext{ViewportWidth: &width}); err != nil {
		t.Fatalf("AssignPersona() error = %v", err)
	}
	if a.lastReq.Context == nil || a.lastReq.Context.ViewportWidth != 390 {
		t.Errorf("assigner context = %+v, want viewport 390", a.lastReq.Context)
	}
}

// newPipeline wires real components: baseline models, the default catalog
// and an in-memory assignment store.
func newPipeline(t *testing.T, models func(features.Layout) predict.Models) *Engine {
	t.Helper()
	builder := features.NewBuilder(features.AllGroups)

	svc, err := predict.NewService(models(builder.Layout()), builder.Layout().Signature(), predict.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	matcher, err := persona.NewMatcher(persona.DefaultCatalog(), persona.DefaultMatcherConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	assigner, err := persona.NewAssigner(matcher, persona.NewMemoryStore(), 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAssigner() error = %v", err)
	}
	synth, err := tokens.NewSynthesizer(tokens.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewSynthesizer() error = %v", err)
	}
	e, err := NewEngine(fixedNormalizer(), builder, svc, assigner, synth, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestPipeline_BaselineModels(t *testing.T) {
	e := newPipeline(t, func(l features.Layout) predict.Models {
		m, err := predict.BaselineModels(l)
		if err != nil {
			t.Fatalf("BaselineModels() error = %v", err)
		}
		return m
	})

	width, height := 2560, 1440
	raw := &signals.RawContext{ViewportWidth: &width, ViewportHeight: &height}

	first, err := e.Personalize(context.Background(), Request{SessionID: "pipeline-1", Context: raw})
	if err != nil {
		t.Fatalf("Personalize() error = %v", err)
	}
	if first.Prediction.Fallback {
		t.Errorf("baseline prediction fell back: %s", first.Prediction.FallbackReason)
	}
	if first.Tokens.IsEmpty() {
		t.Error("merged tokens are empty")
	}

	second, err := e.Personalize(context.Background(), Request{SessionID: "pipeline-1", Context: raw})
	if err != nil {
		t.Fatalf("Personalize() error = %v", err)
	}
	if second.Persona.Persona.ID != first.Persona.Persona.ID {
		t.Errorf("persona changed within TTL: %s then %s", first.Persona.Persona.ID, second.Persona.Persona.ID)
	}
	if !second.Prediction.CacheHit {
		t.Error("identical context did not hit the prediction cache")
	}
	if !second.Tokens.Equal(first.Tokens) {
		t.Error("identical requests produced different tokens")
	}
}

func TestPipeline_ModelsUnavailable(t *testing.T) {
	e := newPipeline(t, func(features.Layout) predict.Models { return predict.Models{} })

	resp := e.Predict(context.Background(), nil)
	if !resp.Fallback || !resp.Tokens.Equal(tokens.Default()) {
		t.Errorf("Predict() fallback=%v tokens=%v, want default tokens", resp.Fallback, resp.Tokens.Classes())
	}
	if resp.Confidence != (predict.Confidence{}) {
		t.Errorf("Confidence = %+v, want zero", resp.Confidence)
	}

	res, err := e.Personalize(context.Background(), Request{SessionID: "pipeline-2"})
	if err != nil {
		t.Fatalf("Personalize() error = %v", err)
	}
	if res.MergeMode != MergeOverlay {
		t.Errorf("MergeMode = %s, want %s", res.MergeMode, MergeOverlay)
	}
}

func TestPipeline_ConcurrentNewSession(t *testing.T) {
	e := newPipeline(t, func(l features.Layout) predict.Models {
		m, _ := predict.BaselineModels(l)
		return m
	})

	const callers = 12
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Personalize(context.Background(), Request{SessionID: "brand-new"})
			errs[i] = err
			if err == nil {
				ids[i] = res.Persona.Persona.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d got persona %s, caller 0 got %s", i, ids[i], ids[0])
		}
	}
}

func TestPipeline_LookupAndReleasePersona(t *testing.T) {
	e := newPipeline(t, func(features.Layout) predict.Models { return predict.Models{} })
	ctx := context.Background()

	if _, err := e.LookupPersona(ctx, "pipeline-3"); !errors.Is(err, persona.ErrAssignmentNotFound) {
		t.Fatalf("LookupPersona() before assignment error = %v, want ErrAssignmentNotFound", err)
	}

	assigned, err := e.AssignPersona(ctx, "pipeline-3", "", nil)
	if err != nil {
		t.Fatalf("AssignPersona() error = %v", err)
	}
	found, err := e.LookupPersona(ctx, "pipeline-3")
	if err != nil {
		t.Fatalf("LookupPersona() error = %v", err)
	}
	if found.Persona.ID != assigned.Persona.ID || found.Fresh {
		t.Errorf("LookupPersona() = %s fresh=%v, want %s not fresh", found.Persona.ID, found.Fresh, assigned.Persona.ID)
	}

	if err := e.ReleasePersona(ctx, "pipeline-3"); err != nil {
		t.Fatalf("ReleasePersona() error = %v", err)
	}
	if _, err := e.LookupPersona(ctx, "pipeline-3"); !errors.Is(err, persona.ErrAssignmentNotFound) {
		t.Errorf("LookupPersona() after release error = %v, want ErrAssignmentNotFound", err)
	}
}
