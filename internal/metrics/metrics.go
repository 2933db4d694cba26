// Package metrics exposes decoder counters and gauges for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
)

const namespace = "dcf77"

// Metrics holds the collectors of one receiver. Each instance has its own
// registry so tests never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	faults        *prometheus.CounterVec
	published     prometheus.Counter
	fallbacks     prometheus.Counter
	anchors       prometheus.Counter
	rejectedEdges prometheus.Counter
	telegrams     prometheus.Counter
	sinkErrors    *prometheus.CounterVec

	second   prometheus.Gauge
	state    prometheus.Gauge
	synced   prometheus.Gauge
	quartz   prometheus.Gauge
	interval prometheus.Histogram
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Decoding faults by kind",
		}, []string{"kind"}),
		published: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Valid time records published at a minute start",
		}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_requests_total",
			Help:      "Minute starts without a valid record",
		}),
		anchors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_anchors_total",
			Help:      "Times the tick phase was re-anchored to a signal edge",
		}),
		rejectedEdges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_rejected_total",
			Help:      "Edges whose interval was neither 1s nor 2s",
		}),
		telegrams: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegrams_written_total",
			Help:      "Time telegrams written to the serial line",
		}),
		sinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Output failures by sink",
		}, []string{"sink"}),
		second: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "second",
			Help:      "Current second within the minute",
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "decoder_state",
			Help:      "Protocol decoder position (0 = not synced, 1..60 = telegram second + 1)",
		}),
		synced: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "synced",
			Help:      "1 once the edge synchronizer has locked",
		}),
		quartz: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quartz",
			Help:      "1 while the time is advanced locally instead of decoded",
		}),
		interval: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edge_interval_seconds",
			Help:      "Accepted intervals between signal edges",
			Buckets:   []float64{0.9375, 0.97, 0.99, 1.0, 1.01, 1.03, 1.0625, 1.875, 1.95, 2.0, 2.05, 2.125},
		}),
	}
	for _, k := range dcf77.FaultKinds() {
		m.faults.WithLabelValues(k.String())
	}
	return m
}

// Observe updates counters from the events of one handler invocation.
func (m *Metrics) Observe(events []dcf77.Event) {
	for _, e := range events {
		switch e.Type {
		case dcf77.EventAccepted:
			m.interval.Observe(e.Interval.Seconds())
		case dcf77.EventLocked:
			m.anchors.Inc()
			m.synced.Set(1)
		case dcf77.EventRejected:
			m.rejectedEdges.Inc()
		case dcf77.EventBit:
			m.second.Set(float64(e.Second))
			m.state.Set(float64(e.State))
		case dcf77.EventFault:
			m.faults.WithLabelValues(e.Fault.Kind.String()).Inc()
		case dcf77.EventPublished:
			m.published.Inc()
		case dcf77.EventFallback:
			m.fallbacks.Inc()
		}
	}
}

// SetQuartz records whether the consumer runs on a locally advanced time.
func (m *Metrics) SetQuartz(quartz bool) {
	v := 0.0
	if quartz {
		v = 1
	}
	m.quartz.Set(v)
}

// TelegramWritten counts one serial telegram.
func (m *Metrics) TelegramWritten() {
	m.telegrams.Inc()
}

// SinkError counts one failure of the named output ("serial", "mqtt").
func (m *Metrics) SinkError(sink string) {
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
