// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package signals turns the per-visit browser snapshot into a strongly typed,
fully populated context.

A RawContext arrives from an untrusted capture step: every field is optional
and any of them may be out of range, NaN, or plain garbage. The Normalizer is
the single choke point that converts it into a NormalizedContext, where every
field is present and inside its declared domain. No component downstream of
this package ever sees an optional field.

# Tolerance

Normalization never fails:

  - numeric values outside their bounds are clamped to the nearest bound
  - NaN and infinite values become the field's neutral default
  - absent values receive documented defaults (see the Default* constants)
  - enumerated strings are lower-cased; unknown values map to "unknown"

# Derived Attributes

A NormalizedContext also resolves a handful of attributes that several
consumers need: the storefront region (explicit region, then locale country,
then timezone), the device class from viewport width, the connection quality
bucket, and the day part used by persona scoring.

# Usage

	n := signals.NewNormalizer()
	nctx := n.Normalize(raw)
	if nctx.DeviceClass() == signals.DeviceMobile {
	    // ...
	}
*/
package signals
