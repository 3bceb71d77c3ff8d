package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tramway-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Path resolution counter
	PathResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "path_resolutions_total",
			Help:      "Total branch path resolutions",
		},
		[]string{"status"},
	)

	// Layout recompute counter
	LayoutRecomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "layout_recomputes_total",
			Help:      "Total subway layout recomputations",
		},
		[]string{"status"},
	)

	// Layout recompute duration histogram
	LayoutRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "layout_recompute_duration_seconds",
			Help:      "Subway layout recomputation duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// Streaming session counters
	StreamSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "stream_sessions_total",
			Help:      "Total assistant streaming sessions",
		},
		[]string{"status"},
	)

	// Streamed chunk counter
	StreamChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "stream_chunks_total",
			Help:      "Total streamed assistant reply chunks",
		},
	)

	// Queue depth gauge
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tramway",
			Subsystem: "api",
			Name:      "queue_depth",
			Help:      "Layout recompute queue depth",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordPathResolution records a branch path resolution
func RecordPathResolution(status string) {
	PathResolutionsTotal.WithLabelValues(status).Inc()
}

// RecordLayoutRecompute records a layout recomputation
func RecordLayoutRecompute(status string, durationSec float64) {
	LayoutRecomputesTotal.WithLabelValues(status).Inc()
	LayoutRecomputeDuration.Observe(durationSec)
}

// RecordStreamSession records a completed or failed streaming session
func RecordStreamSession(status string) {
	StreamSessionsTotal.WithLabelValues(status).Inc()
}

// RecordStreamChunk records one streamed reply chunk
func RecordStreamChunk() {
	StreamChunksTotal.Inc()
}

// SetQueueDepth sets the current queue depth
func SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}
