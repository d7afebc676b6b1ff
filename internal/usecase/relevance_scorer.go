package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Relevance signal weights, summing to 1.0
const (
	weightFuzzy    = 0.25 // Token-sorted similarity of name and query
	weightExact    = 0.40 // Key terms literally present in the name
	weightPartial  = 0.10 // Key terms with at least one sub-word in the name
	weightCategory = 0.25 // Coarse category agreement
)

// Scoring constants
const (
	exactModelBonus = 0.5

	categoryMatchScore     = 1.0
	categoryNeutralScore   = 0.5
	categoryMismatchScore  = 0.3
	accessoryForMainScore  = 0.1 // Accessory listing for a phone/laptop/tablet query
	accessoryForOtherScore = 0.2 // Accessory listing for any other non-accessory query

	accessoryCategory = "accessory"
)

// Category is one row of the coarse category table
type Category struct {
	Name     string
	Keywords []string
}

// MatchingTables holds the keyword tables the scorer classifies with.
// Empty fields fall back to the defaults.
type MatchingTables struct {
	StopWords              []string
	Categories             []Category
	MainCategories         []string
	AccessoryKeywords      []string
	AccessoryQueryKeywords []string
	ModelPatterns          []string
}

// DefaultMatchingTables returns the built-in keyword tables
func DefaultMatchingTables() MatchingTables {
	return MatchingTables{
		StopWords: []string{
			"the", "a", "an", "and", "or", "but", "in", "on", "at",
			"to", "for", "of", "with", "by",
		},
		Categories: []Category{
			{Name: "phone", Keywords: []string{"iphone", "phone", "mobile", "smartphone", "galaxy", "pixel", "oneplus"}},
			{Name: "laptop", Keywords: []string{"laptop", "macbook", "thinkpad", "notebook", "computer"}},
			{Name: "tablet", Keywords: []string{"ipad", "tablet", "kindle"}},
			{Name: "audio", Keywords: []string{"headphones", "earbuds", "speaker", "airpods"}},
			{Name: "accessory", Keywords: []string{"case", "cover", "charger", "cable", "screen protector", "silicon", "leather"}},
		},
		MainCategories: []string{"phone", "laptop", "tablet"},
		AccessoryKeywords: []string{
			"case", "cover", "charger", "cable", "screen protector",
			"silicon", "leather", "tempered glass",
		},
		AccessoryQueryKeywords: []string{"case", "cover", "charger", "cable", "screen protector"},
		ModelPatterns: []string{
			`\b\d+\s*pro\s*max\b`,
			`\b\d+\s*pro\b`,
			`\b\d+\s*plus\b`,
			`\b\d+r\b`,
			`\biphone\s*\d+\b`,
			`\bgalaxy\s*s\d+\b`,
		},
	}
}

// Relevance is the outcome of scoring one listing name against a query
type Relevance struct {
	Value           float64
	ExactModelMatch bool
	Accessory       bool
}

// RelevanceScorer computes 0..1 query-match scores for listing names
type RelevanceScorer struct {
	stopWords              map[string]bool
	categories             []Category
	mainCategories         map[string]bool
	accessoryKeywords      []string
	accessoryQueryKeywords []string
	modelPatterns          []*regexp.Regexp
}

// NewRelevanceScorer creates a scorer from the given tables, compiling the
// model patterns. Returns an error if a pattern does not compile.
func NewRelevanceScorer(tables MatchingTables) (*RelevanceScorer, error) {
	defaults := DefaultMatchingTables()
	if len(tables.StopWords) == 0 {
		tables.StopWords = defaults.StopWords
	}
	if len(tables.Categories) == 0 {
		tables.Categories = defaults.Categories
	}
	if len(tables.MainCategories) == 0 {
		tables.MainCategories = defaults.MainCategories
	}
	if len(tables.AccessoryKeywords) == 0 {
		tables.AccessoryKeywords = defaults.AccessoryKeywords
	}
	if len(tables.AccessoryQueryKeywords) == 0 {
		tables.AccessoryQueryKeywords = defaults.AccessoryQueryKeywords
	}
	if len(tables.ModelPatterns) == 0 {
		tables.ModelPatterns = defaults.ModelPatterns
	}

	s := &RelevanceScorer{
		stopWords:              make(map[string]bool, len(tables.StopWords)),
		mainCategories:         make(map[string]bool, len(tables.MainCategories)),
		accessoryKeywords:      lowerAll(tables.AccessoryKeywords),
		accessoryQueryKeywords: lowerAll(tables.AccessoryQueryKeywords),
	}

	for _, w := range tables.StopWords {
		s.stopWords[strings.ToLower(w)] = true
	}
	for _, c := range tables.Categories {
		s.categories = append(s.categories, Category{
			Name:     strings.ToLower(c.Name),
			Keywords: lowerAll(c.Keywords),
		})
	}
	for _, c := range tables.MainCategories {
		s.mainCategories[strings.ToLower(c)] = true
	}
	for _, p := range tables.ModelPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid model pattern %q: %w", p, err)
		}
		s.modelPatterns = append(s.modelPatterns, re)
	}

	return s, nil
}

// Score computes the relevance of a listing name for the query.
// The value is the weighted sum of four signals and lies in [0, 1].
func (s *RelevanceScorer) Score(productName string, q *QueryContext) Relevance {
	name := strings.ToLower(productName)

	fuzzy := tokenSortRatio(name, q.Lower) / 100

	exactModel := s.isExactModelMatch(name, q)
	exact := exactCoverage(name, q.KeyTerms)
	if exactModel {
		exact = math.Min(exact+exactModelBonus, 1.0)
	}

	partial := partialCoverage(name, q.KeyTerms)
	category := s.categoryAlignment(name, q)

	value := fuzzy*weightFuzzy + exact*weightExact + partial*weightPartial + category*weightCategory

	return Relevance{
		Value:           clamp01(value),
		ExactModelMatch: exactModel,
		Accessory:       s.isAccessory(name),
	}
}

// exactCoverage is the fraction of key terms found verbatim in the name
func exactCoverage(name string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(name, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// partialCoverage is the fraction of key terms with at least one sub-word in the name
func partialCoverage(name string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	matched := 0
	for _, term := range terms {
		for _, part := range subWords(term) {
			if strings.Contains(name, part) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(terms))
}

// isExactModelMatch checks whether the name carries the same model/version
// token as the query for any of the model patterns.
func (s *RelevanceScorer) isExactModelMatch(name string, q *QueryContext) bool {
	for i, pattern := range s.modelPatterns {
		queryTokens := q.modelTokens[i]
		if len(queryTokens) == 0 {
			continue
		}
		for _, m := range pattern.FindAllString(name, -1) {
			if _, ok := queryTokens[normalizeModelToken(m)]; ok {
				return true
			}
		}
	}
	return false
}

// categoryAlignment scores how well the name fits the query's coarse category
func (s *RelevanceScorer) categoryAlignment(name string, q *QueryContext) float64 {
	if q.Category == "" {
		return categoryNeutralScore
	}

	matchesCategory := containsAny(name, s.categoryKeywords(q.Category))
	accessory := s.isAccessory(name)

	if s.mainCategories[q.Category] {
		switch {
		case accessory:
			return accessoryForMainScore
		case matchesCategory:
			return categoryMatchScore
		default:
			return categoryMismatchScore
		}
	}

	switch {
	case matchesCategory:
		return categoryMatchScore
	case accessory && q.Category != accessoryCategory:
		return accessoryForOtherScore
	default:
		return categoryNeutralScore
	}
}

// classify returns the first category whose keywords appear in text, or ""
func (s *RelevanceScorer) classify(text string) string {
	for _, c := range s.categories {
		if containsAny(text, c.Keywords) {
			return c.Name
		}
	}
	return ""
}

func (s *RelevanceScorer) categoryKeywords(name string) []string {
	for _, c := range s.categories {
		if c.Name == name {
			return c.Keywords
		}
	}
	return nil
}

// isAccessory checks if a lowercased name describes an accessory
func (s *RelevanceScorer) isAccessory(name string) bool {
	return containsAny(name, s.accessoryKeywords)
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
