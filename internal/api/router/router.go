package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/resque-go/internal/api/handler"
)

// Options holds the router settings outside the handler dependencies
type Options struct {
	ServiceName string
	// Metrics is mounted at MetricsPath when set
	Metrics     http.Handler
	MetricsPath string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	if opts.ServiceName == "" {
		opts.ServiceName = "resque-api-service"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger, "/health", opts.MetricsPath))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": opts.ServiceName,
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": opts.ServiceName,
		})
	})

	if opts.Metrics != nil {
		r.GET(opts.MetricsPath, gin.WrapH(opts.Metrics))
	}

	h := handler.New(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		queues := v1.Group("/queues")
		{
			queues.GET("", h.ListQueues)
			queues.GET("/:queue", h.GetQueue)
			queues.DELETE("/:queue", h.RemoveQueue)
			queues.POST("/:queue/jobs", h.Enqueue)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.GET("/:job_id/status", h.GetJobStatus)
			jobs.DELETE("/:job_id/status", h.StopTracking)
		}

		failures := v1.Group("/failures")
		{
			failures.GET("", h.ListFailures)
			failures.DELETE("", h.ClearFailures)
		}

		v1.GET("/workers", h.ListWorkers)
		v1.GET("/stats", h.GetStats)
	}

	return r
}
