package usecase

import (
	"math"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Duplicate detection thresholds. Cross-currency pairs need a stricter name
// match because their prices cannot be compared.
const (
	sameCurrencyNameThreshold  = 90.0
	crossCurrencyNameThreshold = 95.0
	samePriceTolerance         = 0.05
)

// Deduplicator collapses near-identical listings, keeping the first one seen
type Deduplicator struct{}

// NewDeduplicator creates a new deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

type acceptedListing struct {
	listing domain.Listing
	tokens  string
}

// Deduplicate returns the listings in input order with later near-duplicates removed.
// Every listing is compared against the already accepted ones only.
func (d *Deduplicator) Deduplicate(listings []domain.Listing) []domain.Listing {
	accepted := make([]acceptedListing, 0, len(listings))

	for _, listing := range listings {
		tokens := sortedTokenString(listing.ProductName)

		duplicate := false
		for _, existing := range accepted {
			if isDuplicate(listing, tokens, existing.listing, existing.tokens) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, acceptedListing{listing: listing, tokens: tokens})
		}
	}

	unique := make([]domain.Listing, len(accepted))
	for i, a := range accepted {
		unique[i] = a.listing
	}
	return unique
}

// isDuplicate applies the asymmetric same-currency / cross-currency rule
func isDuplicate(a domain.Listing, aTokens string, b domain.Listing, bTokens string) bool {
	similarity := ratio(aTokens, bTokens)

	if strings.EqualFold(a.Currency, b.Currency) {
		return similarity > sameCurrencyNameThreshold &&
			relativePriceDifference(a.Price, b.Price) < samePriceTolerance
	}
	return similarity > crossCurrencyNameThreshold
}

// relativePriceDifference is |p1-p2| / max(p1, p2, 1)
func relativePriceDifference(p1, p2 float64) float64 {
	return math.Abs(p1-p2) / math.Max(math.Max(p1, p2), 1)
}
