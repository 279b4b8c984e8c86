package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/service"
	"github.com/cryptomonitor/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// pagination reads skip/limit query params. A missing or malformed limit
// falls back to the default; anything above maxLimit is capped.
func pagination(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.Query("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

// respondError maps service errors onto HTTP responses
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": verrs,
		})
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, service.ErrRuleNameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// validID rejects malformed ids with a 400 before they reach the store
func validID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if errs := validation.ValidateID(id); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": errs})
		return "", false
	}
	return id, true
}
