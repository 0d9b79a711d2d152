// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package signals

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Integer signals saturate to this range before the Normalizer clamps them.
const (
	maxDecodedInt = math.MaxInt32
	minDecodedInt = math.MinInt32
)

// UnmarshalJSON decodes a context snapshot field by field. A field with the
// wrong JSON type or an unparsable value is left nil so the Normalizer
// defaults it; it never fails the whole snapshot. Integers accept fractional
// numbers (truncated) and numeric strings, and saturate instead of
// overflowing. Booleans accept "true"/"false" and 0/1. Timestamps accept
// RFC 3339 strings and Unix epoch milliseconds.
//
// The only error is one from a value that is not JSON at all, which the
// enclosing decoder reports before this method runs.
func (c *RawContext) UnmarshalJSON(data []byte) error {
	*c = RawContext{}
	decodeLenient(data, reflect.ValueOf(c).Elem())
	return nil
}

// UnmarshalJSON decodes history aggregates with the same tolerance as
// RawContext.
func (h *History) UnmarshalJSON(data []byte) error {
	*h = History{}
	decodeLenient(data, reflect.ValueOf(h).Elem())
	return nil
}

// UnmarshalJSON decodes cohort statistics with the same tolerance as
// RawContext.
func (c *Cohort) UnmarshalJSON(data []byte) error {
	*c = Cohort{}
	decodeLenient(data, reflect.ValueOf(c).Elem())
	return nil
}

var (
	timeType = reflect.TypeOf(time.Time{})

	// fieldIndex maps JSON names to struct field indexes, built once per type.
	fieldIndex = map[reflect.Type]map[string]int{
		reflect.TypeOf(RawContext{}): indexFields(reflect.TypeOf(RawContext{})),
		reflect.TypeOf(History{}):    indexFields(reflect.TypeOf(History{})),
		reflect.TypeOf(Cohort{}):     indexFields(reflect.TypeOf(Cohort{})),
	}
)

func indexFields(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out[name] = i
		}
	}
	return out
}

// decodeLenient fills the pointer fields of dst from a JSON object. A value
// that is not an object leaves dst empty.
func decodeLenient(data []byte, dst reflect.Value) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return
	}
	index := fieldIndex[dst.Type()]
	for name, raw := range fields {
		i, ok := index[name]
		if !ok || isNull(raw) {
			continue
		}
		field := dst.Field(i)
		if v, ok := decodeValue(raw, field.Type().Elem()); ok {
			field.Set(v)
		}
	}
}

// decodeValue returns a pointer of type *elem decoded from raw.
func decodeValue(raw json.RawMessage, elem reflect.Type) (reflect.Value, bool) {
	ptr := reflect.New(elem)
	switch {
	case elem == timeType:
		ts, ok := lenientTime(raw)
		if !ok {
			return reflect.Value{}, false
		}
		ptr.Elem().Set(reflect.ValueOf(ts))
	case elem.Kind() == reflect.Struct:
		if _, ok := fieldIndex[elem]; !ok {
			return reflect.Value{}, false
		}
		decodeLenient(raw, ptr.Elem())
	case elem.Kind() == reflect.Int:
		n, ok := lenientInt(raw)
		if !ok {
			return reflect.Value{}, false
		}
		ptr.Elem().SetInt(n)
	case elem.Kind() == reflect.Float64:
		f, ok := lenientFloat(raw)
		if !ok {
			return reflect.Value{}, false
		}
		ptr.Elem().SetFloat(f)
	case elem.Kind() == reflect.Bool:
		b, ok := lenientBool(raw)
		if !ok {
			return reflect.Value{}, false
		}
		ptr.Elem().SetBool(b)
	case elem.Kind() == reflect.String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return reflect.Value{}, false
		}
		ptr.Elem().SetString(s)
	default:
		return reflect.Value{}, false
	}
	return ptr, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// unquote returns the contents of a JSON string, or raw itself for any other
// JSON value.
func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func lenientFloat(raw json.RawMessage) (float64, bool) {
	f, err := strconv.ParseFloat(unquote(raw), 64)
	if err != nil && !isRangeError(err) {
		return 0, false
	}
	// ParseFloat returns ±Inf on overflow; the Normalizer clamps or defaults it.
	return f, true
}

func lenientInt(raw json.RawMessage) (int64, bool) {
	f, ok := lenientFloat(raw)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	switch {
	case f >= maxDecodedInt:
		return maxDecodedInt, true
	case f <= minDecodedInt:
		return minDecodedInt, true
	default:
		return int64(f), true
	}
}

func lenientBool(raw json.RawMessage) (bool, bool) {
	switch strings.ToLower(unquote(raw)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// lenientTime accepts RFC 3339 (with or without fractional seconds) and
// Unix epoch milliseconds as produced by Date.now().
func lenientTime(raw json.RawMessage) (time.Time, bool) {
	s := unquote(raw)
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, true
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 || ms > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// maxEpochMillis is 9999-12-31T23:59:59Z.
const maxEpochMillis = 253402300799000

func isRangeError(err error) bool {
	return errors.Is(err, strconv.ErrRange)
}
