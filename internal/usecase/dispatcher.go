package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/pricelens/backend/internal/domain"
)

const defaultSourceTimeout = 10 * time.Second

// DispatcherConfig holds configuration for the source dispatcher
type DispatcherConfig struct {
	SourceTimeout time.Duration
	Logger        *slog.Logger
}

// Dispatcher fans a query out to every listing source concurrently and joins
// whatever arrived before the deadline
type Dispatcher struct {
	timeout time.Duration
	logger  *slog.Logger
}

// DispatchResult is the joined output of one fan-out
type DispatchResult struct {
	Listings []domain.Listing
	Reports  []domain.SourceReport
}

// Succeeded returns the number of sources that answered without error
func (r *DispatchResult) Succeeded() int {
	n := 0
	for _, report := range r.Reports {
		if report.Status == domain.SourceStatusOK {
			n++
		}
	}
	return n
}

type sourceOutcome struct {
	index    int
	status   string
	result   mo.Result[[]domain.Listing]
	duration time.Duration
}

// NewDispatcher creates a new dispatcher with the given configuration
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	timeout := config.SourceTimeout
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		timeout: timeout,
		logger:  logger.With("component", "dispatcher"),
	}
}

// Dispatch retrieves listings for query from every source. A failing, panicking
// or late source only loses its own listings; it is reported and never fails
// the dispatch. Listings are returned in source order and malformed ones are
// dropped. The only error is the caller's own context ending.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	query string,
	sources []domain.ListingSource,
) (*DispatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	names := make([]string, len(sources))
	for i, source := range sources {
		names[i] = source.Name()
	}

	start := time.Now()

	// Buffered so sources abandoned at the deadline can still deliver and exit
	outcomes := make(chan sourceOutcome, len(sources))
	for i, source := range sources {
		go d.retrieve(dispatchCtx, i, names[i], source, query, outcomes)
	}

	collected := make([]*sourceOutcome, len(sources))
	pending := len(sources)

collect:
	for pending > 0 {
		select {
		case o := <-outcomes:
			collected[o.index] = &o
			pending--
		case <-dispatchCtx.Done():
			if err := ctx.Err(); err != nil {
				d.logger.Info("dispatch abandoned by caller", "query", query, "error", err)
				return nil, err
			}
			break collect
		}
	}

	// Sources that honor ctx may deliver before the select sees it end
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &DispatchResult{
		Listings: make([]domain.Listing, 0),
		Reports:  make([]domain.SourceReport, len(sources)),
	}

	for i, name := range names {
		report := domain.SourceReport{Source: name}
		o := collected[i]

		switch {
		case o == nil:
			err := domain.NewSourceError(name, domain.ErrSourceTimeout, nil)
			report.Status = domain.SourceStatusTimeout
			report.Error = err.Error()
			report.DurationMs = time.Since(start).Milliseconds()
			d.logger.Warn("source abandoned at deadline", "source", name, "timeout", d.timeout)

		case o.result.IsError():
			report.Status = o.status
			report.Error = o.result.Error().Error()
			report.DurationMs = o.duration.Milliseconds()
			d.logger.Warn("source failed", "source", name, "status", o.status, "error", o.result.Error())

		default:
			listings := o.result.MustGet()
			for _, l := range listings {
				if l.Source == "" {
					l.Source = name
				}
				if err := l.Validate(); err != nil {
					report.Dropped++
					continue
				}
				result.Listings = append(result.Listings, l)
			}
			report.Status = domain.SourceStatusOK
			report.Count = len(listings) - report.Dropped
			report.DurationMs = o.duration.Milliseconds()
			d.logger.Info("source finished", "source", name, "listings", report.Count, "dropped", report.Dropped)
		}

		result.Reports[i] = report
	}

	return result, nil
}

// retrieve runs one source and always delivers exactly one outcome, even when
// the source panics.
func (d *Dispatcher) retrieve(
	ctx context.Context,
	index int,
	name string,
	source domain.ListingSource,
	query string,
	out chan<- sourceOutcome,
) {
	start := time.Now()
	outcome := sourceOutcome{index: index}

	defer func() {
		if rec := recover(); rec != nil {
			outcome.status = domain.SourceStatusPanic
			outcome.result = mo.Err[[]domain.Listing](
				domain.NewSourceError(name, domain.ErrSourceFailure, fmt.Errorf("panic: %v", rec)))
		}
		outcome.duration = time.Since(start)
		out <- outcome
	}()

	listings, err := source.Retrieve(ctx, query)
	switch {
	case err == nil:
		outcome.status = domain.SourceStatusOK
		outcome.result = mo.Ok(listings)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome.status = domain.SourceStatusTimeout
		outcome.result = mo.Err[[]domain.Listing](domain.NewSourceError(name, domain.ErrSourceTimeout, err))
	default:
		outcome.status = domain.SourceStatusFailed
		outcome.result = mo.Err[[]domain.Listing](domain.NewSourceError(name, domain.ErrSourceFailure, err))
	}
}
