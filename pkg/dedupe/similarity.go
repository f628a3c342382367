// Package dedupe implements the record-linkage core: per-field comparators,
// max-confidence aggregation and the threshold-based duplicate resolver.
package dedupe

import "strings"

// Scorer provides string similarity scoring for fuzzy comparators
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns 1.0 if strings are equal (case-insensitive), 0.0 otherwise
func (s *Scorer) ExactMatch(a, b string) float64 {
	if strings.EqualFold(a, b) {
		return 1.0
	}
	return 0.0
}

// Levenshtein calculates normalized Levenshtein similarity (0.0 to 1.0)
func (s *Scorer) Levenshtein(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	distance := s.LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))

	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two-row dynamic programming keeps memory linear in len(b)
	prevRow := make([]int, len(b)+1)
	currRow := make([]int, len(b)+1)

	for i := 0; i <= len(b); i++ {
		prevRow[i] = i
	}

	for i := 0; i < len(a); i++ {
		currRow[0] = i + 1

		for j := 0; j < len(b); j++ {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			currRow[j+1] = min(
				currRow[j]+1,      // insertion
				prevRow[j+1]+1,    // deletion
				prevRow[j]+cost,   // substitution
			)
		}

		prevRow, currRow = currRow, prevRow
	}

	return prevRow[len(b)]
}
