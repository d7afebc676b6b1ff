package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"

	"github.com/pricelens/backend/internal/domain"
)

const (
	serviceName    = "pricelens-backend"
	serviceVersion = "1.0.0"
)

// SearchUsecase is the search service surface the handlers need
type SearchUsecase interface {
	Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error)
	Rank(query string, listings []domain.Listing, minRelevance mo.Option[float64]) ([]domain.ScoredListing, error)
	Countries() []domain.Country
	CacheStatus(ctx context.Context) (domain.CacheStats, time.Duration, bool)
	ClearCache(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	searchService SearchUsecase
	logger        *slog.Logger
}

// NewHandler creates a new HTTP handler. A nil service makes every API
// endpoint answer 503.
func NewHandler(searchService SearchUsecase, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		searchService: searchService,
		logger:        logger.With("component", "http"),
	}
}

// SearchRequestBody is the JSON body of POST /api/v1/search
type SearchRequestBody struct {
	Query        string   `json:"query"`
	Country      string   `json:"country"`
	MinRelevance *float64 `json:"minRelevance"`
	MaxResults   *int     `json:"maxResults"`
	Refresh      bool     `json:"refresh"`
}

// RankRequestBody is the JSON body of POST /api/v1/rank
type RankRequestBody struct {
	Query        string           `json:"query"`
	Listings     []domain.Listing `json:"listings"`
	MinRelevance *float64         `json:"minRelevance"`
}

// RankResponse is the result of POST /api/v1/rank
type RankResponse struct {
	Query        string                 `json:"query"`
	Products     []domain.ScoredListing `json:"products"`
	TotalResults int                    `json:"totalResults"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// ListCountries returns the searchable countries and their sources
func (h *Handler) ListCountries(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	countries := h.searchService.Countries()
	c.JSON(http.StatusOK, gin.H{
		"countries": countries,
		"total":     len(countries),
	})
}

// Search aggregates and ranks listings from the country's sources
func (h *Handler) Search(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var body SearchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	response, err := h.searchService.Search(c.Request.Context(), &domain.SearchRequest{
		Query:        body.Query,
		Country:      body.Country,
		MinRelevance: mo.PointerToOption(body.MinRelevance),
		MaxResults:   mo.PointerToOption(body.MaxResults),
		Refresh:      body.Refresh,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Rank scores caller-supplied listings without contacting any source
func (h *Handler) Rank(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var body RankRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	products, err := h.searchService.Rank(body.Query, body.Listings, mo.PointerToOption(body.MinRelevance))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RankResponse{
		Query:        body.Query,
		Products:     products,
		TotalResults: len(products),
	})
}

// CacheStatus reports the result cache contents
func (h *Handler) CacheStatus(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	stats, ttl, enabled := h.searchService.CacheStatus(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"enabled":    enabled,
		"entries":    stats.Entries,
		"expired":    stats.Expired,
		"ttlSeconds": int64(ttl.Seconds()),
	})
}

// ClearCache drops every cached search
func (h *Handler) ClearCache(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	if err := h.searchService.ClearCache(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.searchService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search service not configured"})
		return false
	}
	return true
}

// respondError maps usecase errors to HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnsupportedCountry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request timed out"})
	default:
		h.logger.Error("request failed",
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
