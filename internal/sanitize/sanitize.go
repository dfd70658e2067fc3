package sanitize

/*
				Calliper Input Sanitisation
	Pure helpers that strip dangerous bytes and markup from user input
	before it is stored or echoed anywhere. Every function is total and
	idempotent: applying it twice yields the same result as once.

	Sanitisation is deliberately separate from validation (internal/validate):
	these functions produce a cleaned value, validation decides whether a
	value is acceptable at all. Callers apply both.
*/

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

const (
	maxEmailLength    = 254
	maxUsernameLength = 30
)

// strictMarkup allows zero tags and zero attributes, everything else is
// stripped or entity-escaped.
var strictMarkup = bluemonday.StrictPolicy()

var jsSchemePattern = regexp.MustCompile(`(?i)javascript\s*:`)

// String trims whitespace and removes NUL bytes and C0/C1 control
// characters. Markup is preserved; use HTML for that.
func String(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if isControlRune(r) {
			return -1
		}
		return r
	}, input)

	// strip first, then trim: stripping can expose leading whitespace
	// that a trim-first ordering would miss on the second pass
	return strings.TrimSpace(cleaned)
}

// HTML removes all markup tags and attributes. Nothing that looks like a
// tag survives, regardless of case tricks, malformed nesting or embedded
// NUL bytes, and no javascript: scheme makes it through either.
func HTML(input string) string {
	cleaned := strictMarkup.Sanitize(input)

	// bluemonday leaves plain text alone, so scrub the scheme separately.
	// Looped because a single removal can splice a new occurrence together.
	for jsSchemePattern.MatchString(cleaned) {
		cleaned = jsSchemePattern.ReplaceAllString(cleaned, "")
	}

	return cleaned
}

// Email lower-cases, strips control characters and removes every character
// outside the safe email alphabet. @ and . survive. Truncated to the RFC
// length cap of 254.
func Email(input string) string {
	cleaned := String(strings.ToLower(input))

	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '@' || r == '.' || r == '_' || r == '+' || r == '-':
			return r
		}
		return -1
	}, cleaned)

	if len(cleaned) > maxEmailLength {
		cleaned = cleaned[:maxEmailLength]
	}
	return cleaned
}

// Username strips control characters, the quoting/angle characters that
// enable injection, and all whitespace. Truncated to 30 characters.
func Username(input string) string {
	cleaned := String(input)

	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '\'', '"', '\\':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)

	if len(cleaned) > maxUsernameLength {
		cleaned = truncateRunesafe(cleaned, maxUsernameLength)
	}
	return cleaned
}

// Object walks a JSON-shaped document and applies String to every string
// value, recursing into nested objects and arrays. Non-string primitives
// pass through untouched. The input is never mutated; a new structure is
// returned. Documents are assumed acyclic, as produced by JSON decoding.
func Object(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case map[string]any:
		cleaned := make(map[string]any, len(v))
		for key, item := range v {
			cleaned[key] = Object(item)
		}
		return cleaned
	case []any:
		cleaned := make([]any, len(v))
		for i, item := range v {
			cleaned[i] = Object(item)
		}
		return cleaned
	default:
		return value
	}
}

// Number accepts a number or numeric string and reports whether it is a
// finite value. NaN, infinities and unparseable strings are rejected.
func Number(input any) (float64, bool) {
	switch v := input.(type) {
	case float64:
		return checkFinite(v)
	case float32:
		return checkFinite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return checkFinite(parsed)
	default:
		return 0, false
	}
}

func checkFinite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// isControlRune covers NUL, C0 (keeping \t \n \r), DEL and the C1 range
func isControlRune(r rune) bool {
	switch {
	case r >= 0x00 && r <= 0x08:
		return true
	case r == 0x0B || r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r == 0x7F:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	}
	return false
}

// truncateRunesafe cuts at a byte limit without splitting a rune
func truncateRunesafe(s string, limit int) string {
	for limit > 0 && limit < len(s) {
		if r := s[limit]; r&0xC0 != 0x80 {
			break
		}
		limit--
	}
	if limit >= len(s) {
		return s
	}
	return s[:limit]
}
