package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/backend/internal/domain"
)

func TestDeduplicator_Deduplicate(t *testing.T) {
	d := NewDeduplicator()

	tests := []struct {
		name     string
		listings []domain.Listing
		want     []string // sources kept, in order
	}{
		{
			name: "same name within price tolerance",
			listings: []domain.Listing{
				listing("Apple iPhone 15 (Black, 128 GB)", 100, "INR", "Amazon.in"),
				listing("Apple iPhone 15 Black 128 GB", 102, "INR", "Flipkart"),
			},
			want: []string{"Amazon.in"},
		},
		{
			name: "same name outside price tolerance",
			listings: []domain.Listing{
				listing("Apple iPhone 15 (Black, 128 GB)", 100, "INR", "Amazon.in"),
				listing("Apple iPhone 15 Black 128 GB", 108, "INR", "Flipkart"),
			},
			want: []string{"Amazon.in", "Flipkart"},
		},
		{
			name: "different names at same price",
			listings: []domain.Listing{
				listing("Apple iPhone 15", 100, "INR", "Amazon.in"),
				listing("Apple iPhone 15 Pro", 100, "INR", "Flipkart"),
			},
			want: []string{"Amazon.in", "Flipkart"},
		},
		{
			name: "cross currency identical names",
			listings: []domain.Listing{
				listing("Sony WH-1000XM5 Headphones", 29990, "INR", "Amazon.in"),
				listing("Sony WH 1000XM5 Headphones", 399, "USD", "eBay.com"),
			},
			want: []string{"Amazon.in"},
		},
		{
			name: "currency compared case-insensitively",
			listings: []domain.Listing{
				listing("Pixel 9 128GB", 500, "usd", "eBay.com"),
				listing("Pixel 9 128GB", 501, "USD", "Walmart"),
			},
			want: []string{"eBay.com"},
		},
		{
			name: "first occurrence wins",
			listings: []domain.Listing{
				listing("OnePlus 12 256GB", 64999, "INR", "Flipkart"),
				listing("Kindle Paperwhite", 13999, "INR", "Amazon.in"),
				listing("OnePlus 12 256GB", 64000, "INR", "Amazon.in"),
			},
			want: []string{"Flipkart", "Amazon.in"},
		},
		{
			name:     "empty input",
			listings: nil,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Deduplicate(tt.listings)
			sources := make([]string, len(got))
			for i, l := range got {
				sources[i] = l.Source
			}
			assert.Equal(t, tt.want, sources)
		})
	}
}

func TestDeduplicator_Idempotent(t *testing.T) {
	d := NewDeduplicator()
	input := []domain.Listing{
		listingA, listingB, listingC,
		listing("Apple iPhone 16 Pro Max Natural Titanium 256 GB", 136500, "INR", "Flipkart"),
		listing("iPhone 16 Pro Max Case Cover Silicon", 505, "INR", "Amazon.in"),
	}

	once := d.Deduplicate(input)
	assert.Len(t, once, 3)
	assert.Equal(t, once, d.Deduplicate(once))
}

func TestRelativePriceDifference(t *testing.T) {
	assert.InDelta(t, 0.0196, relativePriceDifference(100, 102), 1e-4)
	assert.InDelta(t, 0.0196, relativePriceDifference(102, 100), 1e-4)
	assert.Equal(t, 0.0, relativePriceDifference(50, 50))
	// Sub-unit prices divide by 1
	assert.InDelta(t, 0.4, relativePriceDifference(0.1, 0.5), 1e-9)
}
