// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package predict turns feature vectors into design tokens with two models.

The Classifier picks one label per head (density, typography, color_mode)
and the Regressor predicts continuous CSS variables such as font size and
animation duration. Both are loaded from JSON artifacts (LoadModels) or
built from hand-tuned priors (BaselineModels), and both are bound to the
feature layout signature they were trained on.

Service wraps the models for request traffic:

  - Results are cached per vector fingerprint as encoded payloads, so a cache
    hit returns exactly the bytes the first computation produced.
  - Concurrent misses for one fingerprint share one inference.
  - Inference runs on a bounded worker pool behind a gobreaker circuit
    breaker and is never canceled; callers stop waiting after
    Config.Timeout and a late result still fills the cache.
  - Every failure path returns tokens.Default with zero confidence and a
    FallbackReason. Fallbacks are never cached.

Example:

	models, err := predict.LoadModels(cfg.ModelDir, layout.Signature())
	if err != nil {
	    logger.Warn().Err(err).Msg("Some models unavailable")
	}
	svc, err := predict.NewService(models, layout.Signature(), predict.DefaultConfig(), logger)
	if err != nil {
	    return err
	}
	resp := svc.Predict(ctx, builder.Build(&normalized))
*/
package predict
