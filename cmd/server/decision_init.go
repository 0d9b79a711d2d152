// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package main

import (
	"errors"
	"fmt"

	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/features"
	"github.com/tomtom215/vitrine/internal/logging"
	"github.com/tomtom215/vitrine/internal/persona"
	"github.com/tomtom215/vitrine/internal/personalize"
	"github.com/tomtom215/vitrine/internal/predict"
	"github.com/tomtom215/vitrine/internal/signals"
	"github.com/tomtom215/vitrine/internal/tokens"
)

// decisionCore holds the pipeline components main needs to supervise and close.
type decisionCore struct {
	engine   *personalize.Engine
	assigner *persona.Assigner
	predict  *predict.Service
	store    persona.AssignmentStore
	catalog  *persona.Catalog
	layout   features.Layout
}

// initDecisionCore builds the pipeline bottom-up: catalog and assignment
// store, matcher, feature layout, models, prediction service, synthesizer.
// On error everything opened so far is closed.
func initDecisionCore(cfg *config.Config) (*decisionCore, error) {
	catalog, err := loadCatalog(cfg.Persona.CatalogPath)
	if err != nil {
		return nil, err
	}

	store, err := persona.OpenStore(cfg.Persona.Store, cfg.Persona.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open assignment store: %w", err)
	}
	core, err := buildDecisionCore(cfg, catalog, store)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Error closing assignment store")
		}
		return nil, err
	}
	return core, nil
}

func buildDecisionCore(cfg *config.Config, catalog *persona.Catalog, store persona.AssignmentStore) (*decisionCore, error) {
	matcher, err := persona.NewMatcher(catalog, cfg.Persona.Matcher, logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("create matcher: %w", err)
	}
	assigner, err := persona.NewAssigner(matcher, store, cfg.Persona.AssignmentTTL, logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("create assigner: %w", err)
	}

	groups, err := cfg.Features.GroupSet()
	if err != nil {
		return nil, fmt.Errorf("resolve feature groups: %w", err)
	}
	builder := features.NewBuilder(groups)
	layout := builder.Layout()

	models := loadModels(&cfg.Models, layout)
	predictor, err := predict.NewService(models, layout.Signature(), cfg.Predict, logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("create prediction service: %w", err)
	}

	synthesizer, err := tokens.NewSynthesizer(cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("create token synthesizer: %w", err)
	}

	engine, err := personalize.NewEngine(signals.NewNormalizer(), builder, predictor, assigner,
		synthesizer, cfg.Personalize, logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &decisionCore{
		engine:   engine,
		assigner: assigner,
		predict:  predictor,
		store:    store,
		catalog:  catalog,
		layout:   layout,
	}, nil
}

func loadCatalog(path string) (*persona.Catalog, error) {
	if path == "" {
		catalog := persona.DefaultCatalog()
		logging.Info().
			Str("version", catalog.Version()).
			Int("personas", catalog.Len()).
			Msg("Using built-in persona catalog")
		return catalog, nil
	}

	catalog, err := persona.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load persona catalog: %w", err)
	}
	logging.Info().
		Str("path", path).
		Str("version", catalog.Version()).
		Int("personas", catalog.Len()).
		Msg("Persona catalog loaded")
	return catalog, nil
}

// loadModels loads artifacts from cfg.Dir. Missing artifacts are replaced
// by the baseline models when enabled; otherwise the service runs with what
// loaded and falls back for the rest.
func loadModels(cfg *config.ModelsConfig, layout features.Layout) predict.Models {
	var (
		models predict.Models
		err    error
	)
	if cfg.Dir != "" {
		models, err = predict.LoadModels(cfg.Dir, layout.Signature())
		if err != nil {
			logging.Warn().Err(err).Str("dir", cfg.Dir).Msg("Some model artifacts failed to load")
		}
	} else {
		err = errors.New("no model directory configured")
	}

	if models.Available() {
		logging.Info().Str("dir", cfg.Dir).Str("signature", layout.Signature()).Msg("Model artifacts loaded")
		return models
	}

	if cfg.Baseline {
		baseline, berr := predict.BaselineModels(layout)
		if berr != nil {
			logging.Error().Err(berr).Msg("Failed to build baseline models")
			return models
		}
		if models.Classifier == nil {
			models.Classifier = baseline.Classifier
		}
		if models.Regressor == nil {
			models.Regressor = baseline.Regressor
		}
		logging.Info().Str("signature", layout.Signature()).Msg("Using baseline models")
		return models
	}

	logging.Warn().Err(err).Msg("Models unavailable, every prediction will use fallback tokens")
	return models
}
