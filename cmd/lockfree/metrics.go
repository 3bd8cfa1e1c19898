package main

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lockfree"

// runMetrics collects the outcome of one command run. It is written out once
// at the end of the run, for a node_exporter textfile collector to pick up.
type runMetrics struct {
	registry *prometheus.Registry
	claims   *prometheus.CounterVec
	elements *prometheus.CounterVec
	duration *prometheus.GaugeVec
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "claims_total",
			Help:      "Successful claims per primitive and worker.",
		}, []string{"primitive", "worker"}),
		elements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "claimed_elements_total",
			Help:      "Buffer elements or values handed out per primitive.",
		}, []string{"primitive"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run per command.",
		}, []string{"command"}),
	}
	m.registry.MustRegister(m.claims, m.elements, m.duration)
	return m
}

func (m *runMetrics) claimed(primitive string, worker int, claims, elements uint64) {
	m.claims.WithLabelValues(primitive, strconv.Itoa(worker)).Add(float64(claims))
	m.elements.WithLabelValues(primitive).Add(float64(elements))
}

func (m *runMetrics) finished(command string, d time.Duration) {
	m.duration.WithLabelValues(command).Set(d.Seconds())
}

// writeTextfile does nothing when path is empty.
func (m *runMetrics) writeTextfile(path string) error {
	if path == "" {
		return nil
	}
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.registry), "writing metrics to %s", path)
}
