package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	processingStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "processing_started_total",
		Help: "Total LAS processing jobs started",
	})
	processingCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "processing_completed_total",
		Help: "Total LAS processing jobs completed",
	})
	processingFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "processing_failed_total",
		Help: "Total LAS processing jobs failed",
	})
	processingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "processing_duration_ms",
		Help:    "Processing job duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 300000},
	})
	curvesInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "curve_points_inserted_total",
		Help: "Total curve data points written",
	})
	streamSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "event_stream_subscribers",
		Help: "Open process_log stream connections",
	})
	jobsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "processing_jobs_received_total",
		Help: "Queue messages received by the worker",
	})
	jobsDeletedUnrecoverable = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "processing_jobs_deleted_unrecoverable_total",
		Help: "Queue messages dropped because they could not be decoded",
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		processingStarted,
		processingCompleted,
		processingFailed,
		processingDuration,
		curvesInserted,
		streamSubscribers,
		jobsReceived,
		jobsDeletedUnrecoverable,
	)
}

// IncProcessingStarted increments the started counter.
func IncProcessingStarted() { processingStarted.Inc() }

// IncProcessingCompleted increments the completed counter.
func IncProcessingCompleted() { processingCompleted.Inc() }

// IncProcessingFailed increments the failed counter.
func IncProcessingFailed() { processingFailed.Inc() }

// ObserveProcessingDurationMs records a job duration in milliseconds.
func ObserveProcessingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processingDuration.Observe(value)
}

// AddCurvesInserted adds n written curve points.
func AddCurvesInserted(n int) {
	if n > 0 {
		curvesInserted.Add(float64(n))
	}
}

// StreamOpened and StreamClosed track live SSE connections.
func StreamOpened() { streamSubscribers.Inc() }
func StreamClosed() { streamSubscribers.Dec() }

func IncJobsReceived()             { jobsReceived.Inc() }
func IncJobsDeletedUnrecoverable() { jobsDeletedUnrecoverable.Inc() }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
