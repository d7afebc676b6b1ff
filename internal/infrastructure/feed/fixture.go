package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

var fixtureWordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// FixtureConfig holds configuration for a fixture source
type FixtureConfig struct {
	Name      string
	Path      string
	Currency  string
	StopWords []string // query words that never select a listing
}

// FixtureSource serves listings from a local JSON file in the feed response
// format. A listing matches a query when its name contains any query word
// longer than two characters that is not a stop word.
type FixtureSource struct {
	name      string
	listings  []domain.Listing
	stopWords map[string]bool
}

// NewFixtureSource loads and maps the file at config.Path once
func NewFixtureSource(config FixtureConfig) (*FixtureSource, error) {
	name, path := config.Name, config.Path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}

	mapper := Mapper{Source: name, Currency: config.Currency}
	listings := make([]domain.Listing, 0, len(resp.Items()))
	for _, item := range resp.Items() {
		listing, err := mapper.ToListing(item)
		if err != nil {
			continue
		}
		listings = append(listings, listing)
	}

	stopWords := make(map[string]bool, len(config.StopWords))
	for _, w := range config.StopWords {
		stopWords[strings.ToLower(strings.TrimSpace(w))] = true
	}

	return &FixtureSource{name: name, listings: listings, stopWords: stopWords}, nil
}

// Name returns the source name
func (f *FixtureSource) Name() string {
	return f.name
}

// Retrieve returns copies of the fixture listings matching query
func (f *FixtureSource) Retrieve(ctx context.Context, query string) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := f.queryWords(query)
	matches := make([]domain.Listing, 0)
	for _, listing := range f.listings {
		name := strings.ToLower(listing.ProductName)
		for _, w := range words {
			if strings.Contains(name, w) {
				matches = append(matches, listing)
				break
			}
		}
	}
	return matches, nil
}

func (f *FixtureSource) queryWords(query string) []string {
	var words []string
	for _, w := range fixtureWordPattern.FindAllString(strings.ToLower(query), -1) {
		if len([]rune(w)) > 2 && !f.stopWords[w] {
			words = append(words, w)
		}
	}
	return words
}
