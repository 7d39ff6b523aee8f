package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transit-sync/internal/transit"
)

type Collector struct {
	reg *prometheus.Registry

	RoutesAdded    *prometheus.CounterVec // type label: bus|trolleybus
	RoutesCanceled *prometheus.CounterVec

	RoutesSynced  *prometheus.CounterVec // kind label: platforms|schedule
	RoutesSkipped *prometheus.CounterVec // kind, reason labels; reason: no_data|error

	PointsCreated prometheus.Counter
	PointsUpdated prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	RouteDuration   *prometheus.HistogramVec
	RunDuration     *prometheus.HistogramVec
	RunFailures     *prometheus.CounterVec
	PublishDuration prometheus.Histogram
	LastRunSuccess  *prometheus.GaugeVec // unix seconds
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RoutesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_sync_routes_added_total",
			Help: "Routes created by route reconciliation.",
		}, []string{"type"}),
		RoutesCanceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_sync_routes_canceled_total",
			Help: "Routes canceled by route reconciliation.",
		}, []string{"type"}),
		RoutesSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_sync_routes_synced_total",
			Help: "Routes synced successfully.",
		}, []string{"kind"}),
		RoutesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_sync_routes_skipped_total",
			Help: "Routes skipped during a sync.",
		}, []string{"kind", "reason"}),
		PointsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_sync_route_points_created_total",
			Help: "Route points created by geometry synthesis.",
		}),
		PointsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_sync_route_points_updated_total",
			Help: "Route points updated by geometry synthesis.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_sync_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transit_sync_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transit_sync_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		RouteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_sync_route_duration_seconds",
			Help:    "Duration of a single route sync including fetches.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_sync_run_duration_seconds",
			Help:    "Duration of a whole sync run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"kind"}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_sync_run_failures_total",
			Help: "Sync runs that ended with an error.",
		}, []string{"kind"}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transit_sync_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		LastRunSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transit_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"kind"}),
	}

	// Register
	reg.MustRegister(
		c.RoutesAdded, c.RoutesCanceled,
		c.RoutesSynced, c.RoutesSkipped,
		c.PointsCreated, c.PointsUpdated,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.RouteDuration, c.RunDuration, c.RunFailures, c.PublishDuration,
		c.LastRunSuccess,
	)
	return c
}

func (c *Collector) RoutesReconciled(t transit.RouteType, added, canceled int) {
	c.RoutesAdded.WithLabelValues(string(t)).Add(float64(added))
	c.RoutesCanceled.WithLabelValues(string(t)).Add(float64(canceled))
}

func (c *Collector) RouteSynced(kind string, d time.Duration) {
	c.RoutesSynced.WithLabelValues(kind).Inc()
	c.RouteDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (c *Collector) RouteSkipped(kind, reason string) {
	c.RoutesSkipped.WithLabelValues(kind, reason).Inc()
}

func (c *Collector) PointsUpserted(created, updated int) {
	c.PointsCreated.Add(float64(created))
	c.PointsUpdated.Add(float64(updated))
}

func (c *Collector) RunObserve(kind string, d time.Duration, err error) {
	c.RunDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		c.RunFailures.WithLabelValues(kind).Inc()
		return
	}
	c.LastRunSuccess.WithLabelValues(kind).SetToCurrentTime()
}

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
	slog.Info("metrics listening", "addr", addr)
	return srv
}
