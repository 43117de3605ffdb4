package router

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// routeParams are the path parameters worth carrying into request logs
var routeParams = []string{"queue", "job_id"}

// LoggerMiddleware logs one line per request. The level follows the response
// status; requests to quiet routes (health and metrics scrapes) log at debug.
func LoggerMiddleware(logger *slog.Logger, quiet ...string) gin.HandlerFunc {
	quietRoutes := make(map[string]struct{}, len(quiet))
	for _, route := range quiet {
		quietRoutes[route] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("body_size", c.Writer.Size()),
			slog.String("ip", c.ClientIP()),
		}
		for _, name := range routeParams {
			if v := c.Param(name); v != "" {
				attrs = append(attrs, slog.String(name, v))
			}
		}
		if cursor := c.Query("cursor"); cursor != "" {
			attrs = append(attrs, slog.String("cursor", cursor))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		if _, ok := quietRoutes[route]; ok && level == slog.LevelInfo {
			level = slog.LevelDebug
		}

		logger.LogAttrs(c.Request.Context(), level, "HTTP Request", attrs...)
	}
}

// corsMethods are the methods the queue API routes answer to
var corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}

// CORSMiddleware allows browser dashboards on any origin to call the API.
// Preflight requests are answered directly.
func CORSMiddleware() gin.HandlerFunc {
	methods := strings.Join(corsMethods, ", ")
	maxAge := strconv.Itoa(int((12 * time.Hour).Seconds()))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", methods)

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
