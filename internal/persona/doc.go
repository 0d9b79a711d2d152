// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package persona assigns simulated customer personas to visitor sessions.

A Catalog holds a fixed, ordered list of Profiles loaded through koanf from
YAML or JSON (the built-in catalog is embedded). The Matcher scores every
profile against a signals.NormalizedContext on five deterministic criteria
plus a bounded random jitter:

	region match           25
	device x age bracket   20
	time of day x account  20
	weekend (individuals)  10
	connection x animation 10
	jitter               [0, 15)

The highest total wins; ties keep the earlier catalog entry. A winning total
below MatcherConfig.FloorScore is replaced by a uniform pick, and an empty
catalog yields DefaultProfile.

Jitter is seeded from the session ID, so matching one session twice gives
the same persona.

The Assigner caches assignments in an AssignmentStore (MemoryStore or
BadgerStore) for DefaultAssignmentTTL. Concurrent first requests for one
session are collapsed with singleflight and PutIfAbsent, so every caller
observes the same persona.

Usage:

	matcher, _ := persona.NewMatcher(persona.DefaultCatalog(), persona.DefaultMatcherConfig(), logger)
	assigner, _ := persona.NewAssigner(matcher, persona.NewMemoryStore(), 0, logger)
	res, err := assigner.Assign(ctx, persona.AssignRequest{SessionID: sid, Context: &normalized})
*/
package persona
