package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/pricelens/backend/internal/domain"
)

// Search defaults
const (
	defaultCacheTTL      = time.Hour
	defaultMaxResults    = 50
	defaultMaxResultsCap = 100
	defaultCountry       = "IN"
)

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	CacheTTL          time.Duration
	MinRelevance      mo.Option[float64]
	DefaultMaxResults int
	MaxResultsCap     int
	DefaultCountry    string
	Countries         []domain.Country
	Logger            *slog.Logger
}

// SearchService aggregates, ranks and caches product searches.
// Flow: check cache -> dispatch to sources -> cache -> rank -> truncate
type SearchService struct {
	cache          domain.CacheRepository
	dispatcher     *Dispatcher
	ranker         *Ranker
	sources        map[string]domain.ListingSource
	countries      map[string]domain.Country
	cacheTTL       time.Duration
	minRelevance   float64
	maxResults     int
	maxResultsCap  int
	defaultCountry string
	logger         *slog.Logger
}

// fetchedListings is what the cache holds per country and query: the
// deduplication input, so different relevance floors can reuse it.
type fetchedListings struct {
	Listings  []domain.Listing
	Reports   []domain.SourceReport
	FetchedAt time.Time
}

// NewSearchService creates a new search service. cache may be nil to disable
// result caching. Countries without any configured source are dropped.
func NewSearchService(
	cache domain.CacheRepository,
	sources []domain.ListingSource,
	dispatcher *Dispatcher,
	ranker *Ranker,
	config SearchServiceConfig,
) *SearchService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	minRelevance := config.MinRelevance.OrElse(defaultRelevanceMin)

	maxResultsCap := config.MaxResultsCap
	if maxResultsCap <= 0 {
		maxResultsCap = defaultMaxResultsCap
	}

	maxResults := config.DefaultMaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	maxResults = min(maxResults, maxResultsCap)

	country := strings.ToUpper(config.DefaultCountry)
	if country == "" {
		country = defaultCountry
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	byName := make(map[string]domain.ListingSource, len(sources))
	for _, source := range sources {
		byName[source.Name()] = source
	}

	countries := make(map[string]domain.Country, len(config.Countries))
	for _, c := range config.Countries {
		available := make([]string, 0, len(c.Sources))
		for _, name := range c.Sources {
			if _, ok := byName[name]; ok {
				available = append(available, name)
			}
		}
		if len(available) == 0 {
			logger.Warn("country has no configured sources", "country", c.Code)
			continue
		}
		c.Code = strings.ToUpper(c.Code)
		c.Sources = available
		countries[c.Code] = c
	}

	return &SearchService{
		cache:          cache,
		dispatcher:     dispatcher,
		ranker:         ranker,
		sources:        byName,
		countries:      countries,
		cacheTTL:       cacheTTL,
		minRelevance:   minRelevance,
		maxResults:     maxResults,
		maxResultsCap:  maxResultsCap,
		defaultCountry: country,
		logger:         logger.With("component", "search"),
	}
}

// Search aggregates listings for the request's country, ranks them and returns
// at most the requested number of products.
func (s *SearchService) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()

	if request == nil || strings.TrimSpace(request.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	query := strings.TrimSpace(request.Query)

	country, err := s.lookupCountry(request.Country)
	if err != nil {
		return nil, err
	}

	minRelevance, err := s.resolveMinRelevance(request.MinRelevance)
	if err != nil {
		return nil, err
	}

	maxResults := request.MaxResults.OrElse(s.maxResults)
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: maxResults must be positive", domain.ErrInvalidRequest)
	}
	maxResults = min(maxResults, s.maxResultsCap)

	s.logger.Info("search request", "query", query, "country", country.Code, "refresh", request.Refresh)

	cacheKey := generateCacheKey(country.Code, query)

	fetched, cached := s.getFromCache(ctx, cacheKey, request.Refresh)
	if !cached {
		fetched, err = s.fetch(ctx, query, country)
		if err != nil {
			return nil, err
		}
		s.setInCache(ctx, cacheKey, fetched)
	}

	products := s.ranker.Rank(query, fetched.Listings, minRelevance)
	if len(products) > maxResults {
		products = products[:maxResults]
	}

	response := &domain.SearchResponse{
		SearchID:        uuid.NewString(),
		Query:           query,
		Country:         country,
		Products:        products,
		TotalResults:    len(products),
		PriceAnalysis:   analyzePrices(products),
		SourceBreakdown: sourceBreakdown(products),
		Sources:         fetched.Reports,
		Cached:          cached,
		ResponseTime:    math.Round(time.Since(start).Seconds()*100) / 100,
		Timestamp:       time.Now(),
	}

	s.logger.Info("search completed",
		"search_id", response.SearchID,
		"query", query,
		"country", country.Code,
		"listings", len(fetched.Listings),
		"returned", response.TotalResults,
		"cached", cached,
		"seconds", response.ResponseTime)

	return response, nil
}

// Rank ranks caller-supplied listings without contacting any source
func (s *SearchService) Rank(query string, listings []domain.Listing, minRelevance mo.Option[float64]) ([]domain.ScoredListing, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}

	floor, err := s.resolveMinRelevance(minRelevance)
	if err != nil {
		return nil, err
	}

	return s.ranker.Rank(strings.TrimSpace(query), listings, floor), nil
}

// Countries returns the searchable countries ordered by code
func (s *SearchService) Countries() []domain.Country {
	countries := make([]domain.Country, 0, len(s.countries))
	for _, c := range s.countries {
		countries = append(countries, c)
	}
	sort.Slice(countries, func(i, j int) bool {
		return countries[i].Code < countries[j].Code
	})
	return countries
}

// CacheStatus reports the result cache contents. ok is false when caching is disabled.
func (s *SearchService) CacheStatus(ctx context.Context) (stats domain.CacheStats, ttl time.Duration, ok bool) {
	if s.cache == nil {
		return domain.CacheStats{}, 0, false
	}
	return s.cache.Stats(ctx), s.cacheTTL, true
}

// ClearCache drops every cached search
func (s *SearchService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.logger.Info("clearing result cache")
	return s.cache.Clear(ctx)
}

func (s *SearchService) lookupCountry(code string) (domain.Country, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = s.defaultCountry
	}

	country, ok := s.countries[code]
	if !ok {
		return domain.Country{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedCountry, code)
	}
	return country, nil
}

func (s *SearchService) resolveMinRelevance(requested mo.Option[float64]) (float64, error) {
	minRelevance := requested.OrElse(s.minRelevance)
	if minRelevance < 0 || minRelevance > 1 {
		return 0, fmt.Errorf("%w: minRelevance must be within [0, 1]", domain.ErrInvalidRequest)
	}
	return minRelevance, nil
}

// fetch dispatches the query to the country's sources
func (s *SearchService) fetch(ctx context.Context, query string, country domain.Country) (*fetchedListings, error) {
	sources := make([]domain.ListingSource, 0, len(country.Sources))
	for _, name := range country.Sources {
		sources = append(sources, s.sources[name])
	}

	result, err := s.dispatcher.Dispatch(ctx, query, sources)
	if err != nil {
		return nil, err
	}

	return &fetchedListings{
		Listings:  result.Listings,
		Reports:   result.Reports,
		FetchedAt: time.Now(),
	}, nil
}

// generateCacheKey creates a normalized cache key.
// Format: "search:{country}:{normalized_query}"
func generateCacheKey(country, query string) string {
	return fmt.Sprintf("search:%s:%s", strings.ToLower(country), normalizeForCacheKey(query))
}

// normalizeForCacheKey lowercases, strips punctuation and collapses whitespace
func normalizeForCacheKey(s string) string {
	return strings.Join(strings.Fields(normalizeForRatio(s)), " ")
}

// getFromCache returns the cached fetch for key. refresh evicts the entry instead.
func (s *SearchService) getFromCache(ctx context.Context, key string, refresh bool) (*fetchedListings, bool) {
	if s.cache == nil {
		return nil, false
	}

	if refresh {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("cache delete failed", "key", key, "error", err)
		}
		return nil, false
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	fetched, ok := value.(*fetchedListings)
	if !ok {
		return nil, false
	}
	return fetched, true
}

// setInCache stores a fetch unless every source failed
func (s *SearchService) setInCache(ctx context.Context, key string, fetched *fetchedListings) {
	if s.cache == nil {
		return
	}

	succeeded := false
	for _, r := range fetched.Reports {
		if r.Status == domain.SourceStatusOK {
			succeeded = true
			break
		}
	}
	if !succeeded {
		return
	}

	if err := s.cache.Set(ctx, key, fetched, s.cacheTTL); err != nil {
		// Caching is best effort
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// analyzePrices summarizes the products priced in the dominant currency
func analyzePrices(products []domain.ScoredListing) *domain.PriceAnalysis {
	if len(products) == 0 {
		return nil
	}

	counts := make(map[string]int)
	currency := ""
	for _, p := range products {
		counts[p.Currency]++
		if currency == "" || counts[p.Currency] > counts[currency] {
			currency = p.Currency
		}
	}

	analysis := &domain.PriceAnalysis{Currency: currency}
	sum := 0.0
	n := 0
	for _, p := range products {
		if p.Currency != currency {
			continue
		}
		if n == 0 || p.Price < analysis.MinPrice {
			analysis.MinPrice = p.Price
		}
		if n == 0 || p.Price > analysis.MaxPrice {
			analysis.MaxPrice = p.Price
		}
		sum += p.Price
		n++
	}

	analysis.AvgPrice = math.Round(sum/float64(n)*100) / 100
	analysis.PriceRange = analysis.MaxPrice - analysis.MinPrice
	return analysis
}

// sourceBreakdown counts returned products per source
func sourceBreakdown(products []domain.ScoredListing) map[string]int {
	breakdown := make(map[string]int)
	for _, p := range products {
		breakdown[p.Source]++
	}
	return breakdown
}
