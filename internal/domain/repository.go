package domain

import (
	"context"
	"time"
)

// ListingSource retrieves listings for a query from one site or feed.
// Implementations own their retries and must honour ctx cancellation.
type ListingSource interface {
	Name() string
	Retrieve(ctx context.Context, query string) ([]Listing, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) CacheStats
}

// CacheStats describes the current cache contents
type CacheStats struct {
	Entries int `json:"entries"`
	Expired int `json:"expired"`
}
