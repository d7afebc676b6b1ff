package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureConfig(path string) FixtureConfig {
	return FixtureConfig{
		Name:      "Fixture",
		Path:      path,
		Currency:  "INR",
		StopWords: []string{"the", "and", "for", "with"},
	}
}

func TestNewFixtureSource(t *testing.T) {
	source, err := NewFixtureSource(fixtureConfig("testdata/listings.json"))

	require.NoError(t, err)
	assert.Equal(t, "Fixture", source.Name())
	// the item without a price is dropped at load time
	assert.Len(t, source.listings, 4)
}

func TestNewFixtureSource_Errors(t *testing.T) {
	_, err := NewFixtureSource(fixtureConfig("testdata/missing.json"))
	assert.Error(t, err)

	_, err = NewFixtureSource(fixtureConfig("fixture.go"))
	assert.Error(t, err)
}

func TestFixtureSource_Retrieve(t *testing.T) {
	source, err := NewFixtureSource(fixtureConfig("testdata/listings.json"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    string
		expected int
	}{
		{"model query", "iPhone 15", 3},
		{"other brand", "samsung s24", 1},
		{"short words only", "s2 a", 0},
		{"no overlap", "washing machine", 0},
		{"stop words ignored", "charger for the galaxy", 1},
		{"only stop words", "for the", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := source.Retrieve(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Len(t, listings, tt.expected)
			for _, l := range listings {
				assert.Equal(t, "Fixture", l.Source)
				assert.Equal(t, "INR", l.Currency)
			}
		})
	}
}

func TestFixtureSource_Retrieve_Cancelled(t *testing.T) {
	source, err := NewFixtureSource(fixtureConfig("testdata/listings.json"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = source.Retrieve(ctx, "iphone")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFixtureSource_Retrieve_WithoutStopWords(t *testing.T) {
	config := fixtureConfig("testdata/listings.json")
	config.StopWords = nil

	source, err := NewFixtureSource(config)
	require.NoError(t, err)

	// "for" appears in "Silicone Case for iPhone 15"
	listings, err := source.Retrieve(context.Background(), "charger for the galaxy")
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}
