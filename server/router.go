package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"deals-dashboard/services"
	"deals-dashboard/utils"
)

// DatasetProvider is what the API needs from the loader.
type DatasetProvider interface {
	Load(ctx context.Context) (*services.Dataset, error)
	Clear()
}

// Handler serves the dashboard API over a dataset provider.
type Handler struct {
	provider   DatasetProvider
	aggregator *services.Aggregator
	calculator *services.Calculator
	logger     *utils.Logger
	now        func() time.Time
}

// NewHandler creates a Handler. now may be nil, in which case time.Now is used.
func NewHandler(provider DatasetProvider, logger *utils.Logger, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		provider:   provider,
		aggregator: services.NewAggregator(logger),
		calculator: services.NewCalculator(logger),
		logger:     logger,
		now:        now,
	}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/summaries", h.Summaries)
		api.GET("/summaries.csv", h.SummariesCSV)
		api.GET("/buyers", h.Buyers)
		api.GET("/options", h.Options)
		api.GET("/trends", h.Trends)
		api.GET("/properties", h.Properties)
		api.GET("/tiers", h.Tiers)
		api.GET("/feasibility", h.Feasibility)
		api.POST("/cache/clear", h.ClearCache)
	}

	return r
}

const requestIDHeader = "X-Request-ID"

// requestLogger tags every request with an ID and logs its outcome.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		h.logger.Debug("[server] %s %s %s -> %d (%v)",
			id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
