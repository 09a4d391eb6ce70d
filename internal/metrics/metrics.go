package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Segment skip reasons used as label values on SegmentsSkipped.
const (
	ReasonBadTime     = "bad_time"
	ReasonMissingStop = "missing_stop"
	ReasonNonPositive = "non_positive_duration"
)

// Collector holds the build instrumentation. All metrics are registered on a
// private registry so tests can create collectors freely.
type Collector struct {
	reg *prometheus.Registry

	TripsProcessed  prometheus.Counter
	TripsEmpty      prometheus.Counter
	PointsGenerated prometheus.Counter
	ActiveServices  prometheus.Gauge

	SegmentsSkipped *prometheus.CounterVec // reason label: bad_time|missing_stop|non_positive_duration

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	BuildDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrails_trips_processed_total",
			Help: "Total trips walked by the trace builder.",
		}),
		TripsEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrails_trips_empty_total",
			Help: "Trips that produced no trace points.",
		}),
		PointsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrails_points_generated_total",
			Help: "Total interpolated trace points generated.",
		}),
		ActiveServices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bustrails_active_services",
			Help: "Number of services active on the most recently built date.",
		}),
		SegmentsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bustrails_segments_skipped_total",
			Help: "Segments skipped during trace building.",
		}, []string{"reason"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrails_cache_hits_total",
			Help: "Builds served from an existing artifact.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrails_cache_misses_total",
			Help: "Builds that had to recompute the trace.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bustrails_build_duration_seconds",
			Help:    "Duration of full day-cache builds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
	}

	reg.MustRegister(
		c.TripsProcessed, c.TripsEmpty, c.PointsGenerated, c.ActiveServices,
		c.SegmentsSkipped,
		c.CacheHits, c.CacheMisses,
		c.BuildDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on the given address. The
// server lives for the duration of the process; batch runs simply exit.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
	return srv
}
