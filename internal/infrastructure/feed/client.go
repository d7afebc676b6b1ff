package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

// Client defaults
const (
	defaultSearchPath    = "/search"
	defaultRatePerSecond = 2.0
	defaultBurst         = 5
	defaultMaxRetries    = 3
	defaultMaxResults    = 20
	defaultHTTPTimeout   = 30 * time.Second

	// maxBodyBytes caps how much of a feed response is read
	maxBodyBytes = 4 << 20

	userAgent = "PriceLens/1.0"
)

// Config describes one HTTP JSON listing feed
type Config struct {
	Name          string
	BaseURL       string
	SearchPath    string
	APIKey        string
	Currency      string
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	MaxResults    int
	HTTPTimeout   time.Duration
	Logger        *slog.Logger
}

// Client retrieves listings from a retailer's JSON search endpoint.
// It implements domain.ListingSource.
type Client struct {
	name        string
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	searchPath  string
	currency    string
	maxRetries  int
	maxResults  int
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	debug       bool
}

// NewClient creates a new feed client
func NewClient(cfg Config) *Client {
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = defaultRatePerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	searchPath := cfg.SearchPath
	if searchPath == "" {
		searchPath = defaultSearchPath
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		searchPath:  searchPath,
		currency:    cfg.Currency,
		maxRetries:  maxRetries,
		maxResults:  maxResults,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:      logger.With("component", "feed", "source", cfg.Name),
	}
}

// SetDebug enables or disables per-item logging
func (c *Client) SetDebug(enabled bool) {
	c.debug = enabled
}

// Name returns the source name stamped on every listing
func (c *Client) Name() string {
	return c.name
}

// exponentialBackoff returns the wait before retry attempt+1
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// sleep waits for d or until ctx ends
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) searchURL(query string) string {
	params := url.Values{}
	params.Add("q", query)
	params.Add("limit", strconv.Itoa(c.maxResults))
	if c.apiKey != "" {
		params.Add("api_key", c.apiKey)
	}
	return fmt.Sprintf("%s%s?%s", c.baseURL, c.searchPath, params.Encode())
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// readLimitedBody reads at most maxBodyBytes of the body
func readLimitedBody(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, maxBodyBytes))
}

// retryable reports whether a non-200 status is worth another attempt
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Retrieve searches the feed for query. Transport errors, 429 and 5xx are
// retried with exponential backoff; other statuses fail immediately. A 404
// means the feed has nothing for the query.
func (c *Client) Retrieve(ctx context.Context, query string) ([]domain.Listing, error) {
	reqURL := c.searchURL(query)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("request failed", "attempt", attempt, "error", err)
			lastErr = err
		} else {
			body, readErr := readLimitedBody(resp.Body)
			resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("read body: %w", readErr)
			case resp.StatusCode == http.StatusOK:
				return c.decode(body)
			case resp.StatusCode == http.StatusNotFound:
				c.logger.Info("no listings", "query", query)
				return []domain.Listing{}, nil
			case retryable(resp.StatusCode):
				c.logger.Warn("feed error", "attempt", attempt, "status", resp.StatusCode)
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
			default:
				return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}

		if attempt < c.maxRetries {
			if err := sleep(ctx, exponentialBackoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", c.maxRetries, lastErr)
}

func (c *Client) decode(body []byte) ([]domain.Listing, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	mapper := Mapper{Source: c.name, Currency: c.currency, BaseURL: c.baseURL}
	listings := make([]domain.Listing, 0, len(resp.Items()))
	for _, item := range resp.Items() {
		listing, err := mapper.ToListing(item)
		if err != nil {
			if c.debug {
				c.logger.Debug("skipping item", "error", err)
			}
			continue
		}
		listings = append(listings, listing)
	}

	c.logger.Info("feed answered", "items", len(resp.Items()), "listings", len(listings))
	return listings, nil
}
