// Package metrics exposes inference loop and capture counters via
// Prometheus. Counters are plain atomics updated on the hot path and
// read lazily by gauge functions at scrape time.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camwatch/go-camwatch/internal/log"
)

// Metrics holds all application counters.
type Metrics struct {
	// Loop counters
	TicksTotal        atomic.Uint64
	TicksSkipped      atomic.Uint64 // source not ready
	InferenceFailures atomic.Uint64
	DetectionsDrawn   atomic.Uint64

	// Latency tracking (exponential moving average, microseconds)
	InferenceLatencyUs atomic.Uint64

	// Capture counters
	SessionsStarted atomic.Uint64
	CaptureErrors   atomic.Uint64

	// Dashboard counters
	FramesPublished atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its Prometheus collectors
// registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauges := []struct {
		name string
		help string
		load func() float64
	}{
		{"camwatch_ticks_total", "Total inference loop ticks executed",
			func() float64 { return float64(m.TicksTotal.Load()) }},
		{"camwatch_ticks_skipped_total", "Ticks skipped because no frame was ready",
			func() float64 { return float64(m.TicksSkipped.Load()) }},
		{"camwatch_inference_failures_total", "Model executions that failed",
			func() float64 { return float64(m.InferenceFailures.Load()) }},
		{"camwatch_detections_drawn_total", "Detections drawn above threshold",
			func() float64 { return float64(m.DetectionsDrawn.Load()) }},
		{"camwatch_inference_latency_seconds", "Smoothed model execution latency",
			func() float64 { return float64(m.InferenceLatencyUs.Load()) / 1e6 }},
		{"camwatch_sessions_started_total", "Camera stream sessions opened",
			func() float64 { return float64(m.SessionsStarted.Load()) }},
		{"camwatch_capture_errors_total", "Frame capture errors",
			func() float64 { return float64(m.CaptureErrors.Load()) }},
		{"camwatch_frames_published_total", "Annotated frames sent to dashboard clients",
			func() float64 { return float64(m.FramesPublished.Load()) }},
	}

	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.load,
		))
	}
}

// ObserveInferenceLatency folds a new latency sample into the moving
// average (alpha 0.2).
func (m *Metrics) ObserveInferenceLatency(d time.Duration) {
	sample := uint64(d.Microseconds())
	prev := m.InferenceLatencyUs.Load()
	if prev == 0 {
		m.InferenceLatencyUs.Store(sample)
		return
	}
	m.InferenceLatencyUs.Store((prev*4 + sample) / 5)
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a metrics HTTP listener on addr in a goroutine.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics listener failed", "addr", addr, "err", err)
		}
	}()
}
