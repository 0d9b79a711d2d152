// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package predict

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

func writeArtifact(t *testing.T, dir, name string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testClassifierArtifact(sig string) classifierArtifact {
	return classifierArtifact{
		Signature: sig,
		Dimension: 2,
		Heads: []Head{
			{Name: "density", Labels: []string{"compact", "spacious"}, Weight: [][]float64{{1, 0}, {0, 1}}, Bias: []float64{0, 0}},
		},
	}
}

func testRegressorArtifact(sig string) regressorArtifact {
	return regressorArtifact{
		Signature: sig,
		Dimension: 2,
		Quality:   0.7,
		Outputs: []Output{
			{Name: "spacing_unit", Weights: []float64{2, 2}, Bias: 4, Min: 4, Max: 16, Unit: "px"},
		},
	}
}

func TestLoadModels(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, ClassifierFile, testClassifierArtifact("v3:abc"))
	writeArtifact(t, dir, RegressorFile, testRegressorArtifact("v3:abc"))

	models, err := LoadModels(dir, "v3:abc")
	if err != nil {
		t.Fatalf("LoadModels() error = %v", err)
	}
	if !models.Available() {
		t.Fatal("LoadModels() models not available")
	}

	r, err := models.Regressor.Regress([]float64{1, 1})
	if err != nil {
		t.Fatalf("Regress() error = %v", err)
	}
	if r.Values[0].Formatted != "8px" {
		t.Errorf("spacing = %s, want 8px", r.Values[0].Formatted)
	}
	if r.Quality != 0.7 {
		t.Errorf("quality = %v, want 0.7", r.Quality)
	}
}

func TestLoadModels_Partial(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, ClassifierFile, testClassifierArtifact("v3:abc"))

	models, err := LoadModels(dir, "v3:abc")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("LoadModels() error = %v, want ErrModelUnavailable", err)
	}
	if models.Classifier == nil {
		t.Error("classifier should load independently of the regressor")
	}
	if models.Regressor != nil {
		t.Error("regressor should be nil when its artifact is missing")
	}
	if models.Available() {
		t.Error("Available() = true with a missing regressor")
	}
}

func TestLoadClassifier_Errors(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "stale.json", testClassifierArtifact("v2:old"))
	if err := os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	bad := testClassifierArtifact("v3:abc")
	bad.Heads[0].Bias = []float64{0}
	writeArtifact(t, dir, "invalid.json", bad)

	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"missing file", "absent.json", ErrModelUnavailable},
		{"undecodable", "garbage.json", ErrModelUnavailable},
		{"trained on another layout", "stale.json", ErrSignatureMismatch},
		{"invalid shape", "invalid.json", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClassifier(filepath.Join(dir, tt.file), "v3:abc")
			if err == nil {
				t.Fatal("LoadClassifier() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadClassifier() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRegressor_SignatureMismatch(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, RegressorFile, testRegressorArtifact("v3:abc"))

	_, err := LoadRegressor(filepath.Join(dir, RegressorFile), "v3:def")
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("LoadRegressor() error = %v, want ErrSignatureMismatch", err)
	}
}
