// Package fingerprint derives stable cache keys from chart-insight request
// payloads. Two requests that are semantically equal — same field values,
// any map key order, any numeric formatting of equal magnitude — always
// yield the same digest, across process restarts.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidInput is returned when a payload cannot be reduced to the
// canonical form (cyclic references, values without a JSON representation).
var ErrInvalidInput = errors.New("input cannot be canonicalized")

// volatileFields carry no semantic content and are dropped at every nesting
// level before hashing.
var volatileFields = map[string]bool{
	"timestamp":   true,
	"requestedAt": true,
	"request_id":  true,
	"trace_id":    true,
}

// Compute derives the fingerprint for a chart-insight request. section may
// be empty and context may be nil; both states are part of the hashed
// structure, so an absent context and an empty one produce different
// digests. locale participates so a cached insight always matches the
// requested language.
func Compute(wrestlerID, chartID, section string, chartData, context map[string]any, locale string) (string, error) {
	payload := map[string]any{
		"wrestler_id": wrestlerID,
		"chart_id":    chartID,
		"locale":      locale,
		"chart_data":  chartData,
	}
	if section != "" {
		payload["section"] = section
	}
	if context != nil {
		payload["context"] = context
	}

	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize serializes v into the canonical byte form that feeds the
// hash: object keys sorted lexicographically, numbers normalized to six
// significant digits, volatile fields removed.
func Canonicalize(v any) ([]byte, error) {
	// A JSON round trip both rejects unhashable input (cycles, channels,
	// functions) and collapses every numeric Go type into json.Number.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var b strings.Builder
	if err := writeCanonical(&b, tree); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case string:
		enc, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		b.Write(enc)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		b.WriteString(canonicalNumber(f))
	case []any:
		b.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			if volatileFields[k] {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(k)
			b.Write(enc)
			b.WriteByte(':')
			if err := writeCanonical(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("%w: unsupported value of type %T", ErrInvalidInput, v)
	}
	return nil
}

// canonicalNumber renders f with six significant digits so that equal
// magnitudes hash identically regardless of their original formatting
// (80, 80.0, 8e1 all become "80").
func canonicalNumber(f float64) string {
	if f == 0 {
		// Fold negative zero.
		return "0"
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}
