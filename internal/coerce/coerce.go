// Package coerce parses raw field text into typed values. Every parser
// reports failure with a bool; callers decide the fallback.
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayouts are tried in order when parsing a date field.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Number parses trimmed text as a decimal float. NaN and infinities are
// rejected because a worksheet cannot store them as numbers. Digit
// separators and hex literals are rejected so codes like "1_000" stay text.
func Number(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(s, '_') || isHex(s) {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Date parses trimmed text with DateLayouts. If that fails, every '/' is
// replaced with '-' and the layouts are tried once more.
func Date(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseLayouts(s); ok {
		return t, true
	}

	if !strings.Contains(s, "/") {
		return time.Time{}, false
	}
	return parseLayouts(strings.ReplaceAll(s, "/", "-"))
}

func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CategoryValue parses trimmed text as a small non-negative integer. A
// single leading '+' is allowed.
func CategoryValue(s string) (uint8, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok && !strings.HasPrefix(rest, "+") {
		s = rest
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}
