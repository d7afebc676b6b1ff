package usecase

import (
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// neutralPriceScore is used when a price group carries no ordering signal
const neutralPriceScore = 0.5

// NormalizePrices maps each listing's price onto a 0..1 "cheaper is better"
// scale. Prices are only compared within the same currency; the result is
// aligned with the input slice.
func NormalizePrices(listings []domain.Listing) []float64 {
	groups := make(map[string][]int)
	for i, l := range listings {
		currency := strings.ToUpper(l.Currency)
		groups[currency] = append(groups[currency], i)
	}

	scores := make([]float64, len(listings))
	for _, indexes := range groups {
		prices := make([]float64, len(indexes))
		for j, idx := range indexes {
			prices[j] = listings[idx].Price
		}
		for j, score := range normalizePriceScores(prices) {
			scores[indexes[j]] = score
		}
	}
	return scores
}

// normalizePriceScores linearly maps min price to 1.0 and max price to 0.0.
// A set without spread scores neutralPriceScore everywhere.
func normalizePriceScores(prices []float64) []float64 {
	scores := make([]float64, len(prices))
	if len(prices) == 0 {
		return scores
	}

	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		minPrice = min(minPrice, p)
		maxPrice = max(maxPrice, p)
	}

	priceRange := maxPrice - minPrice
	for i, p := range prices {
		if priceRange == 0 {
			scores[i] = neutralPriceScore
			continue
		}
		scores[i] = 1.0 - (p-minPrice)/priceRange
	}
	return scores
}
