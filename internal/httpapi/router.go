package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
	"call-insights-go/internal/store"
	"call-insights-go/internal/types"
)

type Uploader interface {
	ProcessUpload(ctx context.Context, originalName string, r io.Reader) (*types.CallRecord, error)
}

type CallStore interface {
	Get(ctx context.Context, id uint) (*types.CallRecord, error)
	List(ctx context.Context) ([]types.CallRecord, error)
	Update(ctx context.Context, id uint, f store.Fields) (*types.CallRecord, error)
	Ping(ctx context.Context) error
}

// Options are the HTTP-facing knobs from config.
type Options struct {
	MaxUploadBytes   int64
	UploadRatePerSec float64 // <= 0 disables the limiter
	UploadBurst      int
	CORSAllowOrigins []string
}

type API struct {
	uploads   Uploader
	calls     CallStore
	metrics   *metrics.Metrics
	log       *logger.Logger
	maxUpload int64
}

func NewRouter(uploads Uploader, calls CallStore, m *metrics.Metrics, log *logger.Logger, opts Options) http.Handler {
	api := &API{
		uploads:   uploads,
		calls:     calls,
		metrics:   m,
		log:       log.Component("http"),
		maxUpload: opts.MaxUploadBytes,
	}

	r := gin.New()
	r.Use(
		requestLogger(api.log),
		recovery(api.log),
		cors.New(corsConfig(opts.CORSAllowOrigins)),
		requestMetrics(m),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Altur Call Analyzer API is running"})
	})
	r.GET("/healthz", api.health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.POST("/upload", uploadLimiter(opts.UploadRatePerSec, opts.UploadBurst), api.upload)
	r.GET("/calls", api.listCalls)
	r.GET("/calls/:id", api.getCall)
	r.PATCH("/calls/:id/tags", api.updateTags)
	r.GET("/calls/:id/export", api.exportCall)
	r.GET("/exports/calls.xlsx", api.exportWorkbook)
	r.GET("/analytics", api.analytics)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", logger.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", logger.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func uploadLimiter(perSec float64, burst int) gin.HandlerFunc {
	if perSec <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(perSec), burst)
	return func(c *gin.Context) {
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many uploads, try again shortly."})
			return
		}
		c.Next()
	}
}
