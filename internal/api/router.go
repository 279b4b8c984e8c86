package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cryptomonitor/internal/broadcast"
	"github.com/cryptomonitor/internal/metrics"
	"github.com/cryptomonitor/internal/scheduler"
	"github.com/cryptomonitor/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// LoopReporter exposes the state of the ingestion loops
type LoopReporter interface {
	Status() []scheduler.TaskStatus
}

// Subscriber hands out live article subscriptions
type Subscriber interface {
	Subscribe() *broadcast.Subscription
}

// Dependencies groups what the router needs. Health, Loops and Stream are optional.
type Dependencies struct {
	Registry service.Registry
	Query    service.QueryService
	Health   HealthChecker
	Loops    LoopReporter
	Stream   Subscriber
	Metrics  *metrics.Recorder
}

const healthTimeout = 2 * time.Second

// NewRouter creates and configures the Gin router
func NewRouter(deps Dependencies, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	feedHandler := NewFeedHandler(deps.Registry, deps.Query, log)
	articleHandler := NewArticleHandler(deps.Query, log)

	router.GET("/health", healthCheck(deps))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.Stream != nil {
		router.GET("/ws", NewStreamHandler(deps.Stream, log).Serve)
	}

	// API v1
	v1 := router.Group("/v1")
	{
		feeds := v1.Group("/feeds")
		{
			feeds.POST("", feedHandler.RegisterFeed)
			feeds.GET("", feedHandler.ListFeeds)
			feeds.GET("/:id", feedHandler.GetFeed)
		}

		rules := v1.Group("/rules")
		{
			rules.POST("", feedHandler.CreateRule)
			rules.GET("", feedHandler.ListRules)
			rules.GET("/:id", feedHandler.GetRule)
		}

		articles := v1.Group("/articles")
		{
			articles.GET("", articleHandler.ListArticles)
			articles.GET("/:id", articleHandler.GetArticle)
		}

		v1.GET("/article-jobs", articleHandler.ListJobs)
	}

	return router
}

// healthCheck reports database reachability and the ingestion loop states
func healthCheck(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		resp := gin.H{
			"service":   "cryptomonitor",
			"timestamp": time.Now().Format(time.RFC3339),
		}

		if deps.Health != nil {
			ctx, cancel := contextWithTimeout(c, healthTimeout)
			defer cancel()
			if err := deps.Health.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
				resp["database"] = err.Error()
			} else {
				resp["database"] = "ok"
			}
		}
		if deps.Loops != nil {
			resp["loops"] = deps.Loops.Status()
		}

		resp["status"] = status
		c.JSON(code, resp)
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
