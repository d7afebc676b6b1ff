package usecase

import (
	"regexp"
	"strings"
)

// Compiled regex patterns for query preprocessing
var (
	// Matches word runs, unicode aware
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	// Splits a term into its letter and digit runs ("256gb" -> "256", "gb")
	subWordPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)
)

// minKeyTermLength is the exclusive lower bound on key term length
const minKeyTermLength = 2

// QueryContext holds everything derived from a search string for one query.
// It is built once per query and shared read-only by the scoring stages.
type QueryContext struct {
	Raw            string
	Lower          string
	KeyTerms       []string
	Category       string
	AccessoryQuery bool

	// modelTokens[i] holds the normalized matches of model pattern i in the query
	modelTokens []map[string]struct{}
}

// HasModelToken reports whether the query names a recognizable model/version.
func (q *QueryContext) HasModelToken() bool {
	for _, tokens := range q.modelTokens {
		if len(tokens) > 0 {
			return true
		}
	}
	return false
}

// NewQueryContext preprocesses a query against the scorer's tables
func (s *RelevanceScorer) NewQueryContext(query string) *QueryContext {
	lower := strings.ToLower(strings.TrimSpace(query))

	q := &QueryContext{
		Raw:            query,
		Lower:          lower,
		KeyTerms:       s.extractKeyTerms(lower),
		Category:       s.classify(lower),
		AccessoryQuery: containsAny(lower, s.accessoryQueryKeywords),
		modelTokens:    make([]map[string]struct{}, len(s.modelPatterns)),
	}

	for i, pattern := range s.modelPatterns {
		matches := pattern.FindAllString(lower, -1)
		if len(matches) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(matches))
		for _, m := range matches {
			set[normalizeModelToken(m)] = struct{}{}
		}
		q.modelTokens[i] = set
	}

	return q
}

// extractKeyTerms splits the query into words and drops stop words and short
// terms. Duplicates are removed, first occurrence wins.
func (s *RelevanceScorer) extractKeyTerms(lower string) []string {
	words := wordPattern.FindAllString(lower, -1)

	terms := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, word := range words {
		if len([]rune(word)) <= minKeyTermLength {
			continue
		}
		if s.stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
	}

	return terms
}

// subWords returns the letter and digit runs of a key term
func subWords(term string) []string {
	parts := subWordPattern.FindAllString(term, -1)
	if len(parts) == 0 {
		return []string{term}
	}
	return parts
}

// normalizeModelToken drops whitespace so "16 pro max" and "16promax" compare equal
func normalizeModelToken(token string) string {
	return multipleSpacesRegex.ReplaceAllString(token, "")
}

// containsAny checks whether text contains any of the keywords as a substring
func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
