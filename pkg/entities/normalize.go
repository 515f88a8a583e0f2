package entities

import (
	"strings"

	"golang.org/x/text/cases"
)

// folder performs Unicode case folding so that matching is stable across
// vendor casing differences ("ACME GmbH" vs "Acme GmbH").
var folder = cases.Fold()

// NormalizeName produces the canonical matching key for a display name:
// case-folded, trimmed, with internal whitespace collapsed to single spaces.
func NormalizeName(name string) string {
	folded := folder.String(strings.TrimSpace(name))
	return strings.Join(strings.Fields(folded), " ")
}

// NamesEqual reports whether two display names normalize to the same key.
func NamesEqual(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b) && NormalizeName(a) != ""
}

// ContainsName reports whether needle's normalized form appears inside
// haystack's normalized form. Used for partial-name and free-text signals.
func ContainsName(haystack, needle string) bool {
	h := NormalizeName(haystack)
	n := NormalizeName(needle)
	if h == "" || n == "" {
		return false
	}
	return strings.Contains(h, n)
}
