package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
)

// requestLogger assigns the request id and writes one access line per request.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := logger.RequestID(c.Request)
		c.Request.Header.Set(logger.RequestIDHeader, id)
		c.Header(logger.RequestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		entry := log.WithRequest(c.Request).
			WithField("status", status).
			WithField("bytes", c.Writer.Size()).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

func recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		log.WithRequest(c.Request).WithField("panic", rec).Error("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	})
}

func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
