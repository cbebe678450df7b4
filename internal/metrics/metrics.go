package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Uploads       *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Fallbacks     *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "call_insights_uploads_total",
			Help: "Uploads processed, by outcome",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "call_insights_stage_duration_seconds",
			Help:    "Upload pipeline stage latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		// reason: "unconfigured" (mock mode) or "error"
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "call_insights_fallbacks_total",
			Help: "Transcription/analysis results replaced by a fallback value",
		}, []string{"stage", "reason"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "call_insights_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "method", "code"}),
	}
	reg.MustRegister(m.Uploads, m.StageDuration, m.Fallbacks, m.HTTPRequests)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
