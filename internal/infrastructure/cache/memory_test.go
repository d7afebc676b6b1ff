package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

type fetchedPage struct {
	Query    string
	Listings []domain.Listing
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value interface{}
		ttl   time.Duration
	}{
		{
			name:  "string value",
			key:   "test-string",
			value: "hello world",
			ttl:   1 * time.Minute,
		},
		{
			name:  "int value",
			key:   "test-int",
			value: 42,
			ttl:   1 * time.Minute,
		},
		{
			name: "struct value",
			key:  "search:IN:iphone 15",
			value: fetchedPage{
				Query: "iphone 15",
				Listings: []domain.Listing{
					{ProductName: "Apple iPhone 15", Price: 79900, Currency: "INR", Link: "https://example.in/p/1", Source: "Amazon.in"},
				},
			},
			ttl: 1 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := cache.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			switch want := tt.value.(type) {
			case fetchedPage:
				page, ok := got.(fetchedPage)
				if !ok {
					t.Fatalf("Get() type = %T, want fetchedPage", got)
				}
				if page.Query != want.Query || len(page.Listings) != len(want.Listings) {
					t.Errorf("Get() = %+v, want %+v", page, want)
				}
			default:
				if got != tt.value {
					t.Errorf("Get() = %v, want %v", got, tt.value)
				}
			}
		})
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	_, err := cache.Get(ctx, "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Get_Expired(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	if err := cache.Set(ctx, "short-ttl", "value", 1*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := cache.Get(ctx, "short-ttl"); err != domain.ErrCacheMiss {
		t.Errorf("Get() after expiration error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, "value", 1*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); err != nil {
		t.Fatalf("Get() before delete error = %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); err != domain.ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}

	// Deleting a missing key is not an error
	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(time.Hour)
	defer cache.Close()
	ctx := context.Background()

	if stats := cache.Stats(ctx); stats.Entries != 0 || stats.Expired != 0 {
		t.Errorf("Stats() = %+v, want empty for new cache", stats)
	}

	for i := 0; i < 3; i++ {
		key := string(rune('a' + i))
		if err := cache.Set(ctx, key, i, 1*time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if err := cache.Set(ctx, "stale", "value", 1*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	stats := cache.Stats(ctx)
	if stats.Entries != 3 {
		t.Errorf("Stats().Entries = %d, want 3", stats.Entries)
	}
	if stats.Expired != 1 {
		t.Errorf("Stats().Expired = %d, want 1", stats.Expired)
	}

	cache.evictExpired()

	if stats := cache.Stats(ctx); stats.Expired != 0 || stats.Entries != 3 {
		t.Errorf("Stats() after eviction = %+v, want 3 entries and 0 expired", stats)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if err := cache.Set(ctx, key, i, 1*time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if stats := cache.Stats(ctx); stats.Entries != 5 {
		t.Fatalf("Stats().Entries = %d, want 5 before clear", stats.Entries)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if stats := cache.Stats(ctx); stats.Entries != 0 {
		t.Errorf("Stats().Entries = %d, want 0 after clear", stats.Entries)
	}

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if _, err := cache.Get(ctx, key); err != domain.ErrCacheMiss {
			t.Errorf("Get(%s) after clear error = %v, want %v", key, err, domain.ErrCacheMiss)
		}
	}
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewMemoryCache(time.Millisecond)

	// Close must be safe to call more than once
	cache.Close()
	cache.Close()
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, id, 1*time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
			_ = cache.Stats(ctx)
		}(i)
	}
	wg.Wait()
}
