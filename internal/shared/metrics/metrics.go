package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services report domain events through.
type Recorder interface {
	RecordUpload(kind string)
	RecordDownload(kind string)
	RecordStarToggle(kind string, starred bool)
	RecordRegistration(provider string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	uploads       *prometheus.CounterVec
	downloads     *prometheus.CounterVec
	starToggles   *prometheus.CounterVec
	registrations *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewCollector registers the PaperShare metrics on reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		gatherer: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papershare_uploads_total",
			Help: "Content items created, by kind",
		}, []string{"kind"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papershare_downloads_total",
			Help: "Tracked downloads, by kind",
		}, []string{"kind"}),
		starToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papershare_star_toggles_total",
			Help: "Star toggles, by kind and resulting state",
		}, []string{"kind", "starred"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papershare_registrations_total",
			Help: "New user accounts, by provider",
		}, []string{"provider"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papershare_http_requests_total",
			Help: "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "papershare_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		c.uploads,
		c.downloads,
		c.starToggles,
		c.registrations,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordUpload(kind string) {
	c.uploads.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordDownload(kind string) {
	c.downloads.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordStarToggle(kind string, starred bool) {
	c.starToggles.WithLabelValues(kind, strconv.FormatBool(starred)).Inc()
}

func (c *Collector) RecordRegistration(provider string) {
	c.registrations.WithLabelValues(provider).Inc()
}

// Middleware counts and times every request by its route template.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in Prometheus text format.
func (c *Collector) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{}))
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordUpload(string)           {}
func (Nop) RecordDownload(string)         {}
func (Nop) RecordStarToggle(string, bool) {}
func (Nop) RecordRegistration(string)     {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
