// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package predict

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Artifact file names inside the model directory.
const (
	ClassifierFile = "classifier.json"
	RegressorFile  = "regressor.json"
)

type classifierArtifact struct {
	Signature string `json:"signature"`
	Dimension int    `json:"dimension"`
	Heads     []Head `json:"heads"`
}

type regressorArtifact struct {
	Signature string   `json:"signature"`
	Dimension int      `json:"dimension"`
	Quality   float64  `json:"quality"`
	Outputs   []Output `json:"outputs"`
}

// LoadClassifier reads a classifier artifact trained on the given layout signature.
func LoadClassifier(path, signature string) (*SoftmaxClassifier, error) {
	var a classifierArtifact
	if err := readArtifact(path, &a); err != nil {
		return nil, err
	}
	if a.Signature != signature {
		return nil, fmt.Errorf("%w: %s was trained on %q, runtime layout is %q", ErrSignatureMismatch, path, a.Signature, signature)
	}
	c, err := NewSoftmaxClassifier(a.Signature, a.Dimension, a.Heads)
	if err != nil {
		return nil, fmt.Errorf("invalid classifier %s: %w", path, err)
	}
	return c, nil
}

// LoadRegressor reads a regressor artifact trained on the given layout signature.
func LoadRegressor(path, signature string) (*LinearRegressor, error) {
	var a regressorArtifact
	if err := readArtifact(path, &a); err != nil {
		return nil, err
	}
	if a.Signature != signature {
		return nil, fmt.Errorf("%w: %s was trained on %q, runtime layout is %q", ErrSignatureMismatch, path, a.Signature, signature)
	}
	r, err := NewLinearRegressor(a.Signature, a.Dimension, a.Quality, a.Outputs)
	if err != nil {
		return nil, fmt.Errorf("invalid regressor %s: %w", path, err)
	}
	return r, nil
}

// LoadModels loads both artifacts from dir. Each model that fails to load is
// left nil and its error joined into the returned error, so callers can run
// with whatever loaded and report the rest.
func LoadModels(dir, signature string) (Models, error) {
	var (
		models Models
		errs   []error
	)

	if c, err := LoadClassifier(filepath.Join(dir, ClassifierFile), signature); err != nil {
		errs = append(errs, err)
	} else {
		models.Classifier = c
	}

	if r, err := LoadRegressor(filepath.Join(dir, RegressorFile), signature); err != nil {
		errs = append(errs, err)
	} else {
		models.Regressor = r
	}

	return models, errors.Join(errs...)
}

func readArtifact(path string, v interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s not found", ErrModelUnavailable, path)
		}
		return fmt.Errorf("read model artifact %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrModelUnavailable, path, err)
	}
	return nil
}
