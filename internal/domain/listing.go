package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Listing is one normalized product offer from one source.
type Listing struct {
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Link        string  `json:"link"`
	Source      string  `json:"source"`
}

// Validate reports whether the listing can enter the ranking pipeline.
func (l Listing) Validate() error {
	if strings.TrimSpace(l.ProductName) == "" {
		return fmt.Errorf("%w: empty product name", ErrInvalidListing)
	}
	if !(l.Price > 0) {
		return fmt.Errorf("%w: non-positive price %v", ErrInvalidListing, l.Price)
	}
	if strings.TrimSpace(l.Currency) == "" {
		return fmt.Errorf("%w: missing currency", ErrInvalidListing)
	}
	if strings.TrimSpace(l.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidListing)
	}
	u, err := url.Parse(l.Link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: link %q is not an absolute http(s) URL", ErrInvalidListing, l.Link)
	}
	return nil
}

// ScoredListing is a Listing annotated with the ranking signals of one query.
type ScoredListing struct {
	Listing
	Relevance       float64 `json:"relevance"`
	CompositeScore  float64 `json:"compositeScore"`
	ExactModelMatch bool    `json:"exactModelMatch"`
	Accessory       bool    `json:"accessory"`
}
