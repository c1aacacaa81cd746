// Package metrics holds the Prometheus collectors of the viewer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "streamview"

// Metrics contains the viewer metrics. It implements stream.Observer.
type Metrics struct {
	registry *prometheus.Registry

	MessagesReceived *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	DecodeErrors     *prometheus.CounterVec

	ActiveStreams  *prometheus.GaugeVec
	BlockedStreams *prometheus.GaugeVec
	Reflows        *prometheus.CounterVec

	FramesPresented prometheus.Counter
	FramesRecorded  prometheus.Counter
	RecordErrors    prometheus.Counter
	ComposeDuration prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of payloads decoded",
			},
			[]string{"kind"},
		),
		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "dropped_total",
				Help:      "Payloads dropped or overwritten before the viewer read them",
			},
			[]string{"kind"},
		),
		DecodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "decode_errors_total",
				Help:      "Payloads with at least one malformed stream",
			},
			[]string{"kind"},
		),

		ActiveStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "layout",
				Name:      "active_streams",
				Help:      "Streams currently placed on the canvas",
			},
			[]string{"kind"},
		),
		BlockedStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "layout",
				Name:      "blocked_streams",
				Help:      "Streams rejected because they do not fit",
			},
			[]string{"kind"},
		),
		Reflows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "layout",
				Name:      "reflows_total",
				Help:      "Grid rebuilds triggered by new streams",
			},
			[]string{"kind"},
		),

		FramesPresented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "presented_total",
			Help:      "Composed frames handed to the live view",
		}),
		FramesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "recorded_total",
			Help:      "Composed frames written to disk",
		}),
		RecordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "record_errors_total",
			Help:      "Frames that could not be written",
		}),
		ComposeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "compose_duration_seconds",
			Help:      "Time spent compositing one frame",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}

	m.registry.MustRegister(
		m.MessagesReceived, m.MessagesDropped, m.DecodeErrors,
		m.ActiveStreams, m.BlockedStreams, m.Reflows,
		m.FramesPresented, m.FramesRecorded, m.RecordErrors, m.ComposeDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// MessageReceived increments the received counter for kind.
func (m *Metrics) MessageReceived(kind string) { m.MessagesReceived.WithLabelValues(kind).Inc() }

// MessageDropped increments the dropped counter for kind.
func (m *Metrics) MessageDropped(kind string) { m.MessagesDropped.WithLabelValues(kind).Inc() }

// DecodeError increments the decode error counter for kind.
func (m *Metrics) DecodeError(kind string) { m.DecodeErrors.WithLabelValues(kind).Inc() }

// RecordLayout sets the stream gauges of one grid and counts new reflows.
func (m *Metrics) RecordLayout(kind string, active, blocked, newReflows int) {
	m.ActiveStreams.WithLabelValues(kind).Set(float64(active))
	m.BlockedStreams.WithLabelValues(kind).Set(float64(blocked))
	if newReflows > 0 {
		m.Reflows.WithLabelValues(kind).Add(float64(newReflows))
	}
}

// RecordFrame records one composed frame.
func (m *Metrics) RecordFrame(compose time.Duration) {
	m.FramesPresented.Inc()
	m.ComposeDuration.Observe(compose.Seconds())
}

// RecordSaved records the outcome of writing one frame to disk.
func (m *Metrics) RecordSaved(err error) {
	if err != nil {
		m.RecordErrors.Inc()
		return
	}
	m.FramesRecorded.Inc()
}
