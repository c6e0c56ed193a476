// Package identity canonicalizes guardian contact numbers.
package identity

import (
	"strings"
	"unicode"
)

const comparableDigits = 10

func strip(r rune) rune {
	if r == '+' || r == '-' || unicode.IsSpace(r) {
		return -1
	}
	return r
}

// Normalize strips whitespace, '+' and '-' and keeps the last ten characters.
// Anything shorter than ten characters yields "".
func Normalize(phone string) string {
	s := []rune(strings.Map(strip, phone))
	if len(s) < comparableDigits {
		return ""
	}
	return string(s[len(s)-comparableDigits:])
}

// Match reports whether two contacts normalize to the same non-empty key.
func Match(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// MatchAny reports whether key equals the normalized form of any candidate.
func MatchAny(key string, candidates ...string) bool {
	if key == "" {
		return false
	}
	for _, c := range candidates {
		if Normalize(c) == key {
			return true
		}
	}
	return false
}
