package api

import (
	"net/http"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/service"
	"github.com/cryptomonitor/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article and article-job endpoints
type ArticleHandler struct {
	query service.QueryService
	log   zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(query service.QueryService, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		query: query,
		log:   log.With().Str("handler", "article").Logger(),
	}
}

// ListArticles handles GET /v1/articles
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	skip, limit := pagination(c)
	articles, err := h.query.ListArticles(c.Request.Context(), skip, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": articles, "skip": skip, "limit": limit})
}

// GetArticle handles GET /v1/articles/:id
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id, ok := validID(c)
	if !ok {
		return
	}
	article, err := h.query.GetArticle(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	c.JSON(http.StatusOK, article)
}

// ListJobs handles GET /v1/article-jobs?status=
func (h *ArticleHandler) ListJobs(c *gin.Context) {
	status := c.Query("status")
	if errs := validation.ValidateJobStatus(status); errs != nil {
		respondError(c, h.log, errs)
		return
	}

	skip, limit := pagination(c)
	jobs, err := h.query.ListJobs(c.Request.Context(), models.JobStatus(status), skip, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": jobs, "skip": skip, "limit": limit})
}
