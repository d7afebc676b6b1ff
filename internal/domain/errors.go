package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnsupportedCountry is returned when no sources are configured for a country
	ErrUnsupportedCountry = errors.New("country not supported")

	// ErrInvalidListing is returned when a listing violates the listing invariants
	ErrInvalidListing = errors.New("invalid listing")

	// ErrSourceFailure is returned when a listing source fails to retrieve results
	ErrSourceFailure = errors.New("listing source failed")

	// ErrSourceTimeout is returned when a listing source misses the dispatch deadline
	ErrSourceTimeout = errors.New("listing source timed out")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// SourceError attaches the failing source to one of the source sentinels.
type SourceError struct {
	Source string
	Kind   error
	Err    error
}

// NewSourceError wraps err as a failure of the named source.
func NewSourceError(source string, kind, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Err: err}
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Is(target error) bool {
	return target == e.Kind
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
