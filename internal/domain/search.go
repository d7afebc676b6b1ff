package domain

import (
	"time"

	"github.com/samber/mo"
)

// Source dispatch statuses
const (
	SourceStatusOK      = "ok"
	SourceStatusFailed  = "failed"
	SourceStatusTimeout = "timeout"
	SourceStatusPanic   = "panic"
)

// SearchRequest represents a product search across the sources of one country
type SearchRequest struct {
	Query        string
	Country      string
	MinRelevance mo.Option[float64]
	MaxResults   mo.Option[int]
	Refresh      bool
}

// SourceReport records how a single source behaved during one dispatch
type SourceReport struct {
	Source     string `json:"source"`
	Status     string `json:"status"`
	Count      int    `json:"count"`
	Dropped    int    `json:"dropped"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// PriceAnalysis summarizes the prices of the returned products
type PriceAnalysis struct {
	Currency   string  `json:"currency"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
	AvgPrice   float64 `json:"avgPrice"`
	PriceRange float64 `json:"priceRange"`
}

// SearchResponse is the ranked outcome of a SearchRequest
type SearchResponse struct {
	SearchID        string          `json:"searchId"`
	Query           string          `json:"query"`
	Country         Country         `json:"country"`
	Products        []ScoredListing `json:"products"`
	TotalResults    int             `json:"totalResults"`
	PriceAnalysis   *PriceAnalysis  `json:"priceAnalysis,omitempty"`
	SourceBreakdown map[string]int  `json:"sourceBreakdown"`
	Sources         []SourceReport  `json:"sources"`
	Cached          bool            `json:"cached"`
	ResponseTime    float64         `json:"responseTimeSeconds"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Country groups the sources searched for one market
type Country struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Sources  []string `json:"sites"`
}
