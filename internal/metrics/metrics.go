// Package metrics exposes Prometheus counters for trims, thumbnails and saves.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heimdex_trim"

type Collector struct {
	registry *prometheus.Registry

	trims        *prometheus.CounterVec
	trimDuration prometheus.Histogram
	thumbnails   *prometheus.CounterVec
	saves        *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		trims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trims_total",
			Help:      "Trim invocations by outcome.",
		}, []string{"outcome"}),
		trimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trim_duration_seconds",
			Help:      "Wall time of ffmpeg trim invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		thumbnails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_total",
			Help:      "Thumbnail extractions by result.",
		}, []string{"result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Library saves by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.trims,
		c.trimDuration,
		c.thumbnails,
		c.saves,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveTrim records one trim with outcome success, cancelled, failed or error.
func (c *Collector) ObserveTrim(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.trims.WithLabelValues(outcome).Inc()
	c.trimDuration.Observe(d.Seconds())
}

func (c *Collector) ThumbnailGenerated() {
	if c == nil {
		return
	}
	c.thumbnails.WithLabelValues("generated").Inc()
}

func (c *Collector) ThumbnailSkipped() {
	if c == nil {
		return
	}
	c.thumbnails.WithLabelValues("skipped").Inc()
}

// ObserveSave records a library save as "ok" or "error".
func (c *Collector) ObserveSave(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.saves.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
