// Package ident turns arbitrary CSV header text into column identifiers
// that are safe to splice into quoted SQL.
package ident

import "strings"

// Normalize converts a raw header into a column identifier.
//
// Surrounding whitespace is trimmed, inner spaces become underscores and
// every character outside [0-9A-Za-z_] is dropped. The result is prefixed
// with an underscore when it is empty or starts with a digit. Normalize
// never fails and always returns the same output for the same input.
func Normalize(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")

	var b strings.Builder
	b.Grow(len(s) + 1)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isIdentByte(c) {
			b.WriteByte(c)
		}
	}

	out := b.String()
	if out == "" || isDigit(out[0]) {
		return "_" + out
	}
	return out
}

// NormalizeAll applies Normalize to every header, keeping order.
func NormalizeAll(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = Normalize(h)
	}
	return out
}

// Quote wraps name in double quotes, doubling any embedded quote.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteAll quotes every name and joins them with ", ".
func QuoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// EqualFold reports whether a and b hold the same identifiers in the same
// order, ignoring ASCII case.
func EqualFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
