package usecase

import (
	"log/slog"

	"github.com/pricelens/backend/internal/domain"
)

// Ranker runs the dedup, scoring, combining and filtering stages over an
// already collected listing set. It holds no per-query state and is safe for
// concurrent use.
type Ranker struct {
	deduplicator *Deduplicator
	scorer       *RelevanceScorer
	combiner     *RankCombiner
	logger       *slog.Logger
	debug        bool
}

// RankerConfig holds the collaborators of a Ranker
type RankerConfig struct {
	Scorer             *RelevanceScorer
	Combiner           *RankCombiner
	Logger             *slog.Logger
	EnableDebugLogging bool
}

// NewRanker creates a ranker from its stages
func NewRanker(config RankerConfig) *Ranker {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Ranker{
		deduplicator: NewDeduplicator(),
		scorer:       config.Scorer,
		combiner:     config.Combiner,
		logger:       logger.With("component", "ranker"),
		debug:        config.EnableDebugLogging,
	}
}

// Rank drops malformed listings, removes near-duplicates, scores the rest
// against query and returns those with relevance >= minRelevance sorted by
// descending composite score.
func (r *Ranker) Rank(query string, listings []domain.Listing, minRelevance float64) []domain.ScoredListing {
	valid := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if err := l.Validate(); err != nil {
			r.logger.Debug("dropping malformed listing", "source", l.Source, "error", err)
			continue
		}
		valid = append(valid, l)
	}

	unique := r.deduplicator.Deduplicate(valid)
	if len(unique) == 0 {
		return []domain.ScoredListing{}
	}

	q := r.scorer.NewQueryContext(query)

	relevance := make([]Relevance, len(unique))
	for i, l := range unique {
		relevance[i] = r.scorer.Score(l.ProductName, q)
		if r.debug {
			r.logger.Debug("scored listing",
				"name", l.ProductName,
				"source", l.Source,
				"relevance", relevance[i].Value,
				"exact_model", relevance[i].ExactModelMatch,
				"accessory", relevance[i].Accessory)
		}
	}

	ranked := r.combiner.Combine(q, unique, relevance, NormalizePrices(unique))
	filtered := FilterByRelevance(ranked, minRelevance)

	r.logger.Debug("ranked listings",
		"query", query,
		"input", len(listings),
		"valid", len(valid),
		"unique", len(unique),
		"returned", len(filtered))

	return filtered
}
