package api

import (
	"net/http"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// FeedHandler handles feed and rule endpoints
type FeedHandler struct {
	registry service.Registry
	query    service.QueryService
	log      zerolog.Logger
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(registry service.Registry, query service.QueryService, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		registry: registry,
		query:    query,
		log:      log.With().Str("handler", "feed").Logger(),
	}
}

// RegisterFeed handles POST /v1/feeds
func (h *FeedHandler) RegisterFeed(c *gin.Context) {
	var req models.FeedCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	feed, err := h.registry.RegisterFeed(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Str("feed_id", feed.ID).Str("url", feed.URL).Int("rules", len(feed.Rules)).Msg("Feed registered")
	c.JSON(http.StatusCreated, feed)
}

// ListFeeds handles GET /v1/feeds
func (h *FeedHandler) ListFeeds(c *gin.Context) {
	skip, limit := pagination(c)
	feeds, err := h.query.ListFeeds(c.Request.Context(), skip, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": feeds, "skip": skip, "limit": limit})
}

// GetFeed handles GET /v1/feeds/:id
func (h *FeedHandler) GetFeed(c *gin.Context) {
	id, ok := validID(c)
	if !ok {
		return
	}
	feed, err := h.query.GetFeed(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// ListRules handles GET /v1/rules
func (h *FeedHandler) ListRules(c *gin.Context) {
	skip, limit := pagination(c)
	rules, err := h.query.ListRules(c.Request.Context(), skip, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rules, "skip": skip, "limit": limit})
}

// CreateRule handles POST /v1/rules
func (h *FeedHandler) CreateRule(c *gin.Context) {
	var req models.RuleCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rule, err := h.registry.CreateRule(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetRule handles GET /v1/rules/:id
func (h *FeedHandler) GetRule(c *gin.Context) {
	id, ok := validID(c)
	if !ok {
		return
	}
	rule, err := h.query.GetRule(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if rule == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, rule)
}
