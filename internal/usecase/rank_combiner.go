package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/mo"

	"github.com/pricelens/backend/internal/domain"
)

// Contextual relevance penalties applied when an exact model match exists
const (
	nonExactMatchPenalty = 0.8
	accessoryPenalty     = 0.3
)

const (
	defaultTrustScore   = 0.5
	weightSumTolerance  = 1e-6
	defaultRelevanceMin = 0.2
)

// Weights are the criteria weights of the composite score
type Weights struct {
	Relevance float64
	Price     float64
	Trust     float64
}

// DefaultWeights returns the built-in criteria weights
func DefaultWeights() Weights {
	return Weights{Relevance: 0.75, Price: 0.20, Trust: 0.05}
}

// Validate checks every weight is in [0, 1] and that they sum to 1.0
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"relevance": w.Relevance, "price": w.Price, "trust": w.Trust} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s weight must be within [0, 1], got %v", name, v)
		}
	}
	if sum := w.Relevance + w.Price + w.Trust; math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("criteria weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// DefaultSourceTrust returns the built-in per-source trust table
func DefaultSourceTrust() map[string]float64 {
	return map[string]float64{
		"Amazon.in": 0.95,
		"Flipkart":  0.90,
		"Walmart":   0.95,
		"eBay.com":  0.85,
		"eBay.in":   0.85,
		"Snapdeal":  0.80,
		"Shopsy":    0.75,
	}
}

// RankConfig is the immutable ranking configuration. DefaultTrust applies to
// sources missing from SourceTrust; None means 0.5.
type RankConfig struct {
	Weights      Weights
	SourceTrust  map[string]float64
	DefaultTrust mo.Option[float64]
}

// RankCombiner merges relevance, price and source trust into one composite score
type RankCombiner struct {
	weights      Weights
	sourceTrust  map[string]float64
	defaultTrust float64
}

// NewRankCombiner creates a combiner from the given configuration.
// A zero config uses the built-in weights and trust table.
func NewRankCombiner(config RankConfig) (*RankCombiner, error) {
	weights := config.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	trust := make(map[string]float64)
	source := config.SourceTrust
	if source == nil {
		source = DefaultSourceTrust()
	}
	for name, score := range source {
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("trust score for %q must be within [0, 1], got %v", name, score)
		}
		trust[name] = score
	}

	defaultTrust := config.DefaultTrust.OrElse(defaultTrustScore)
	if defaultTrust < 0 || defaultTrust > 1 {
		return nil, fmt.Errorf("default trust must be within [0, 1], got %v", defaultTrust)
	}

	return &RankCombiner{
		weights:      weights,
		sourceTrust:  trust,
		defaultTrust: defaultTrust,
	}, nil
}

// Trust returns the static trust score of a source
func (c *RankCombiner) Trust(source string) float64 {
	if score, ok := c.sourceTrust[source]; ok {
		return score
	}
	return c.defaultTrust
}

// Combine scores every listing and returns them sorted by descending composite
// score. relevance and prices must be aligned with listings. When any listing is
// an exact model match, the others lose 20% relevance and accessories (for a
// non-accessory query) lose 70%; the adjusted relevance is what gets reported.
func (c *RankCombiner) Combine(
	q *QueryContext,
	listings []domain.Listing,
	relevance []Relevance,
	prices []float64,
) []domain.ScoredListing {
	hasExactMatch := false
	for _, r := range relevance {
		if r.ExactModelMatch {
			hasExactMatch = true
			break
		}
	}

	scored := make([]domain.ScoredListing, len(listings))
	for i, listing := range listings {
		r := relevance[i]
		value := r.Value

		if hasExactMatch {
			if !r.ExactModelMatch {
				value *= nonExactMatchPenalty
			}
			if r.Accessory && !q.AccessoryQuery {
				value *= accessoryPenalty
			}
		}

		scored[i] = domain.ScoredListing{
			Listing:         listing,
			Relevance:       value,
			ExactModelMatch: r.ExactModelMatch,
			Accessory:       r.Accessory,
			CompositeScore: value*c.weights.Relevance +
				prices[i]*c.weights.Price +
				c.Trust(listing.Source)*c.weights.Trust,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CompositeScore > scored[j].CompositeScore
	})

	return scored
}

// FilterByRelevance drops listings whose relevance is below minRelevance,
// keeping the order of the rest.
func FilterByRelevance(listings []domain.ScoredListing, minRelevance float64) []domain.ScoredListing {
	kept := make([]domain.ScoredListing, 0, len(listings))
	for _, l := range listings {
		if l.Relevance >= minRelevance {
			kept = append(kept, l)
		}
	}
	return kept
}
