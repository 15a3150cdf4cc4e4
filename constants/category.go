package constants

import (
	"strings"
)

// CategoryOrigin tells whether an item category came from a prior log or a fresh model call.
type CategoryOrigin string

const (
	OriginReused     CategoryOrigin = "reused"
	OriginLLMDerived CategoryOrigin = "llm-derived"
)

// Uncategorized marks rows whose description got no assignment after enrichment.
const Uncategorized = "uncategorized"

// rejectedCategoryValues are never reused from a category log; descriptions that
// carry one of them are always sent to the categorizer again.
var rejectedCategoryValues = []string{
	"unknown",
	"error",
	"miscellaneous",
	"unclear",
	"unbekannt",
	"fehler",
	"sonstiges",
	"unklar",
	Uncategorized,
}

// RejectedCategories returns a copy of the rejected value set.
func RejectedCategories() []string {
	out := make([]string, len(rejectedCategoryValues))
	copy(out, rejectedCategoryValues)
	return out
}

// IsRejectedCategory reports whether a category or subcategory value is non-authoritative.
// Empty values count as rejected.
func IsRejectedCategory(value string) bool {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return true
	}
	for _, r := range rejectedCategoryValues {
		if normalized == r {
			return true
		}
	}
	return false
}

// NormalizeDescription is the lookup key used to match item descriptions across runs.
func NormalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
