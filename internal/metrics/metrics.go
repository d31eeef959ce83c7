package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"detectserver/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the detection loop and viewer metrics
type Metrics struct {
	// Frame counters
	FramesProcessed atomic.Uint64
	FramesFailed    atomic.Uint64
	Detections      atomic.Uint64

	// Viewers
	ActiveViewers   atomic.Int64
	TotalViewers    atomic.Uint64
	FramesBroadcast atomic.Uint64
	FramesDropped   atomic.Uint64

	// Session state (0 = idle, 1 = running)
	SessionRunning atomic.Uint64
	SessionsTotal  atomic.Uint64

	inferenceLatency prometheus.Histogram
	failuresByStage  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "detect_inference_duration_seconds",
			Help:    "Time spent in a single model inference",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		failuresByStage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detect_frame_failures_total",
			Help: "Failed frames by pipeline stage",
		}, []string{"stage"}),
	}

	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(m.inferenceLatency, m.failuresByStage)

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "detect_frames_processed_total",
			Help: "Total frames run through the detection pipeline",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "detect_frames_failed_total",
			Help: "Total frames that failed in capture, inference or render",
		},
		func() float64 { return float64(m.FramesFailed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "detect_detections_total",
			Help: "Total detections above the score threshold",
		},
		func() float64 { return float64(m.Detections.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "detect_active_viewers",
			Help: "Number of connected viewers",
		},
		func() float64 { return float64(m.ActiveViewers.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "detect_viewers_total",
			Help: "Total viewers connected",
		},
		func() float64 { return float64(m.TotalViewers.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "detect_frames_broadcast_total",
			Help: "Total overlaid frames handed to viewers",
		},
		func() float64 { return float64(m.FramesBroadcast.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "detect_frames_dropped_total",
			Help: "Total frames dropped for slow viewers",
		},
		func() float64 { return float64(m.FramesDropped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "detect_session_running",
			Help: "Detection session running (0=idle, 1=running)",
		},
		func() float64 { return float64(m.SessionRunning.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "detect_sessions_total",
			Help: "Total detection sessions started",
		},
		func() float64 { return float64(m.SessionsTotal.Load()) },
	))
}

// FrameProcessed records a frame that made it through the whole pipeline.
func (m *Metrics) FrameProcessed(inference time.Duration, detections int) {
	m.FramesProcessed.Add(1)
	m.Detections.Add(uint64(detections))
	m.inferenceLatency.Observe(inference.Seconds())
}

// FrameFailed records a frame that failed at stage.
func (m *Metrics) FrameFailed(stage string) {
	m.FramesFailed.Add(1)
	m.failuresByStage.WithLabelValues(stage).Inc()
}

// StateChanged tracks the loop state.
func (m *Metrics) StateChanged(state session.State) {
	if state == session.Running {
		m.SessionRunning.Store(1)
		m.SessionsTotal.Add(1)
		return
	}
	m.SessionRunning.Store(0)
}

// ViewerConnected and ViewerDisconnected track live viewers.
func (m *Metrics) ViewerConnected() {
	m.ActiveViewers.Add(1)
	m.TotalViewers.Add(1)
}

func (m *Metrics) ViewerDisconnected() {
	m.ActiveViewers.Add(-1)
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
