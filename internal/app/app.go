package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/mo"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/feed"
	"github.com/pricelens/backend/internal/usecase"
)

// App holds the wired application services
type App struct {
	SearchService *usecase.SearchService
	Sources       []domain.ListingSource

	cache *cache.MemoryCache
}

// Build wires sources, ranking stages, the dispatcher and the result cache
// from cfg. Every configuration problem is returned as an error.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sources, err := buildSources(cfg, logger)
	if err != nil {
		return nil, err
	}

	scorer, err := usecase.NewRelevanceScorer(matchingTables(cfg.Matching))
	if err != nil {
		return nil, fmt.Errorf("relevance scorer: %w", err)
	}

	combiner, err := usecase.NewRankCombiner(usecase.RankConfig{
		Weights: usecase.Weights{
			Relevance: cfg.Ranking.WeightRelevance,
			Price:     cfg.Ranking.WeightPrice,
			Trust:     cfg.Ranking.WeightTrust,
		},
		SourceTrust:  trustTable(cfg.Ranking.SourceTrust),
		DefaultTrust: mo.Some(cfg.Ranking.DefaultTrust),
	})
	if err != nil {
		return nil, fmt.Errorf("rank combiner: %w", err)
	}

	ranker := usecase.NewRanker(usecase.RankerConfig{
		Scorer:             scorer,
		Combiner:           combiner,
		Logger:             logger,
		EnableDebugLogging: cfg.Matching.Debug,
	})

	dispatcher := usecase.NewDispatcher(usecase.DispatcherConfig{
		SourceTimeout: cfg.Search.SourceTimeout,
		Logger:        logger,
	})

	app := &App{Sources: sources}

	// A nil repository disables result caching
	var repo domain.CacheRepository
	if cfg.Cache.Enabled {
		app.cache = cache.NewMemoryCache(0)
		repo = app.cache
	}

	app.SearchService = usecase.NewSearchService(repo, sources, dispatcher, ranker, usecase.SearchServiceConfig{
		CacheTTL:          cfg.Cache.TTL,
		MinRelevance:      mo.Some(cfg.Search.MinRelevance),
		DefaultMaxResults: cfg.Search.DefaultMaxResults,
		MaxResultsCap:     cfg.Search.MaxResultsCap,
		DefaultCountry:    cfg.Search.DefaultCountry,
		Countries:         countries(cfg.Countries),
		Logger:            logger,
	})

	logger.Info("application built",
		"sources", len(sources),
		"countries", len(app.SearchService.Countries()),
		"cache", cfg.Cache.Enabled)

	return app, nil
}

// Close releases background resources
func (a *App) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

func buildSources(cfg *config.Config, logger *slog.Logger) ([]domain.ListingSource, error) {
	sources := make([]domain.ListingSource, 0, len(cfg.Sources))

	stopWords := cfg.Matching.StopWords
	if len(stopWords) == 0 {
		stopWords = usecase.DefaultMatchingTables().StopWords
	}

	for _, sc := range cfg.Sources {
		if !sc.IsEnabled() {
			logger.Info("source disabled", "source", sc.Name)
			continue
		}

		switch sc.Type {
		case config.SourceTypeFeed:
			client := feed.NewClient(feed.Config{
				Name:          sc.Name,
				BaseURL:       sc.BaseURL,
				SearchPath:    sc.SearchPath,
				APIKey:        sc.APIKey,
				Currency:      sc.Currency,
				RatePerSecond: sc.RatePerSecond,
				Burst:         sc.Burst,
				MaxRetries:    sc.MaxRetries,
				MaxResults:    sc.MaxResults,
				Logger:        logger,
			})
			client.SetDebug(cfg.Matching.Debug)
			sources = append(sources, client)

		case config.SourceTypeFixture:
			fixture, err := feed.NewFixtureSource(feed.FixtureConfig{
				Name:      sc.Name,
				Path:      sc.Path,
				Currency:  sc.Currency,
				StopWords: stopWords,
			})
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", sc.Name, err)
			}
			sources = append(sources, fixture)

		default:
			return nil, fmt.Errorf("source %s: unknown type %q", sc.Name, sc.Type)
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no enabled listing sources")
	}
	return sources, nil
}

// trustTable merges configured trust scores over the built-in table
func trustTable(entries []config.TrustConfig) map[string]float64 {
	table := usecase.DefaultSourceTrust()
	for _, e := range entries {
		table[e.Source] = e.Score
	}
	return table
}

func matchingTables(mc config.MatchingConfig) usecase.MatchingTables {
	tables := usecase.MatchingTables{
		StopWords:              mc.StopWords,
		MainCategories:         mc.MainCategories,
		AccessoryKeywords:      mc.AccessoryKeywords,
		AccessoryQueryKeywords: mc.AccessoryQueryKeywords,
		ModelPatterns:          mc.ModelPatterns,
	}
	for _, c := range mc.Categories {
		tables.Categories = append(tables.Categories, usecase.Category{Name: c.Name, Keywords: c.Keywords})
	}
	return tables
}

func countries(entries []config.CountryConfig) []domain.Country {
	result := make([]domain.Country, 0, len(entries))
	for _, c := range entries {
		result = append(result, domain.Country{
			Code:     strings.ToUpper(c.Code),
			Name:     c.Name,
			Currency: c.Currency,
			Sources:  c.Sources,
		})
	}
	return result
}
