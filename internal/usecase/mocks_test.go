package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/platform/logger"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string]interface{}
	getError error
	setError error
	setCalls int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]interface{})
	return nil
}

func (m *MockCacheRepository) Stats(ctx context.Context) domain.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CacheStats{Entries: len(m.data)}
}

// MockSource is a mock implementation of domain.ListingSource
type MockSource struct {
	name     string
	listings []domain.Listing
	err      error
	delay    time.Duration
	panicMsg string
	calls    int32
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) Retrieve(ctx context.Context, query string) ([]domain.Listing, error) {
	atomic.AddInt32(&m.calls, 1)

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.err != nil {
		return nil, m.err
	}
	return m.listings, nil
}

func (m *MockSource) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

func listing(name string, price float64, currency, source string) domain.Listing {
	return domain.Listing{
		ProductName: name,
		Price:       price,
		Currency:    currency,
		Link:        "https://shop.example/" + source + "/p",
		Source:      source,
	}
}

func newTestScorer() *RelevanceScorer {
	scorer, err := NewRelevanceScorer(MatchingTables{})
	if err != nil {
		panic(err)
	}
	return scorer
}

func newTestRanker() *Ranker {
	combiner, err := NewRankCombiner(RankConfig{})
	if err != nil {
		panic(err)
	}
	return NewRanker(RankerConfig{
		Scorer:   newTestScorer(),
		Combiner: combiner,
		Logger:   logger.Discard(),
	})
}

// iPhone 16 Pro Max listings: A exact, B accessory, C previous generation
var (
	listingA = listing("Apple iPhone 16 Pro Max (Natural Titanium, 256 GB)", 135900, "INR", "Amazon.in")
	listingB = listing("iPhone 16 Pro Max Case Cover Silicon", 499, "INR", "Snapdeal")
	listingC = listing("Apple iPhone 15 Pro Max 256GB", 120000, "INR", "Flipkart")
)
