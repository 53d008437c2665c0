// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge

	// Calls to script, speech and image providers.
	GenerationCallsTotal      *prometheus.CounterVec
	GenerationCallDuration    *prometheus.HistogramVec
	GeneratedBytesUploaded    *prometheus.CounterVec
	WebsocketClients          prometheus.Gauge
	CatalogBroadcastsTotal    *prometheus.CounterVec
	DownloadsRecordedTotal    *prometheus.CounterVec
	PodcastViewsRecordedTotal prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers every collector once.
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "podcastr_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "podcastr_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route", "status"},
			),
			HTTPInFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "podcastr_http_requests_in_flight",
				Help: "Requests currently being served",
			}),
			GenerationCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "podcastr_generation_calls_total",
					Help: "Calls to generation providers by kind and outcome",
				},
				[]string{"kind", "provider", "outcome"},
			),
			GenerationCallDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "podcastr_generation_call_duration_seconds",
					Help:    "Latency of generation provider calls",
					Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
				},
				[]string{"kind", "provider"},
			),
			GeneratedBytesUploaded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "podcastr_generated_bytes_uploaded_total",
					Help: "Bytes of generated media written to blob storage",
				},
				[]string{"kind"},
			),
			WebsocketClients: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "podcastr_websocket_clients",
				Help: "Connected catalog websocket clients",
			}),
			CatalogBroadcastsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "podcastr_catalog_broadcasts_total",
					Help: "Change signals sent to websocket clients",
				},
				[]string{"type"},
			),
			DownloadsRecordedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "podcastr_downloads_recorded_total",
					Help: "Downloads recorded by item kind",
				},
				[]string{"kind"},
			),
			PodcastViewsRecordedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "podcastr_podcast_views_recorded_total",
				Help: "Podcast views recorded",
			}),
		}
	})
	return instance
}

// Get returns the collectors, registering them on first use.
func Get() *Metrics {
	return Initialize()
}

// ObserveGeneration records one provider call.
func ObserveGeneration(kind, provider string, seconds float64, err error) {
	m := Get()
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.GenerationCallsTotal.WithLabelValues(kind, provider, outcome).Inc()
	m.GenerationCallDuration.WithLabelValues(kind, provider).Observe(seconds)
}
