// Package normalize canonicalises identifiers before they are stored or compared.
package normalize

import (
	"sort"
	"strings"
)

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// ID trims an opaque identifier. Identifiers are case-sensitive so nothing
// else is changed.
func ID(id string) string {
	return strings.TrimSpace(id)
}

// ValidID reports whether id can be used as a document key and as a map key
// inside a document (participants, lastReadAt).
func ValidID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, ".$ \t\n")
}

// PairKey returns the order-independent key of an unordered pair of user ids:
// the two ids sorted and joined with "_". PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	ids := []string{ID(a), ID(b)}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}
