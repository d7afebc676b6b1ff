package usecase

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// normalizeForRatio lowercases s and collapses every run of punctuation and
// whitespace into a single space.
func normalizeForRatio(s string) string {
	return strings.TrimSpace(nonAlphanumericRegex.ReplaceAllString(strings.ToLower(s), " "))
}

// sortedTokenString returns the normalized tokens of s in lexical order.
func sortedTokenString(s string) string {
	tokens := strings.Fields(normalizeForRatio(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tokenSortRatio compares two strings ignoring case, punctuation and word order.
// Returns a whole-number similarity in 0..100.
func tokenSortRatio(a, b string) float64 {
	return ratio(sortedTokenString(a), sortedTokenString(b))
}

// ratio is the normalized indel similarity 2*LCS/(len(a)+len(b)) scaled to 0..100
// and rounded. Empty input on either side scores 0.
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	r1 := []rune(a)
	r2 := []rune(b)
	lcs := longestCommonSubsequence(r1, r2)
	return math.Round(float64(2*lcs) * 100 / float64(len(r1)+len(r2)))
}

// longestCommonSubsequence returns the LCS length of two rune slices
func longestCommonSubsequence(r1, r2 []rune) int {
	m := len(r1)
	n := len(r2)
	if m == 0 || n == 0 {
		return 0
	}

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for i := 1; i <= m; i++ {
		curr[0] = 0
		for j := 1; j <= n; j++ {
			if r1[i-1] == r2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
