// Package sanitize strips personally identifying information from chart
// payloads before they are fingerprinted or sent to an AI generator.
// Sanitization runs on a defense-in-depth basis: known PII keys are
// dropped structurally, then remaining string values are scanned for
// anything that still looks like an email address or phone number.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrPIIDetected is returned when a value slips past key-based stripping
// but still contains something identifying. The payload must not be sent.
var ErrPIIDetected = errors.New("sanitize: PII detected in payload value")

// piiFields are dropped wherever they appear, at any nesting depth.
// Matching is case-insensitive on the lowercased key.
var piiFields = map[string]struct{}{
	"name":          {},
	"name_fa":       {},
	"name_en":       {},
	"first_name":    {},
	"last_name":     {},
	"full_name":     {},
	"email":         {},
	"phone":         {},
	"phone_number":  {},
	"mobile":        {},
	"address":       {},
	"national_id":   {},
	"date_of_birth": {},
	"birth_date":    {},
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	// Phone-number shapes with separators; looksLikePhone decides
	// whether a matched run really is one.
	phonePattern = regexp.MustCompile(`(?:\+|00)?\d[\d\s\-()]{7,}\d`)
)

// Strip returns a deep copy of payload with PII fields removed. The input
// map is never modified. If a remaining string value still matches a PII
// pattern, ErrPIIDetected is returned and the payload must be discarded.
func Strip(payload map[string]any) (map[string]any, error) {
	out, err := stripValue(payload, "")
	if err != nil {
		return nil, err
	}
	m, _ := out.(map[string]any)
	return m, nil
}

func stripValue(v any, path string) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if _, drop := piiFields[strings.ToLower(k)]; drop {
				continue
			}
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			stripped, err := stripValue(child, childPath)
			if err != nil {
				return nil, err
			}
			out[k] = stripped
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			stripped, err := stripValue(child, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = stripped
		}
		return out, nil
	case string:
		if emailPattern.MatchString(val) {
			return nil, fmt.Errorf("%w: email-like value at %q", ErrPIIDetected, path)
		}
		if looksLikePhone(phonePattern.FindString(val)) {
			return nil, fmt.Errorf("%w: phone-like value at %q", ErrPIIDetected, path)
		}
		return val, nil
	default:
		return val, nil
	}
}

// looksLikePhone bounds the residual scan so runs of chart data do not
// read as phone numbers. A phone number carries 10-15 digits (E.164
// caps at 15) in a few separated groups; a pair of ISO dates like
// "2025-01-01 2025-02-02" has 16 digits and five separators and must
// stay clean. The 10-digit floor also keeps single dates clean.
func looksLikePhone(m string) bool {
	digits := digitCount(m)
	if digits < 10 || digits > 15 {
		return false
	}
	return len(m)-digits <= 4
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
