// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes Prometheus collectors for the sound engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Retirement reasons for SampleRetired.
const (
	ReasonFinished  = "finished"
	ReasonRemoved   = "removed"
	ReasonEmptySlot = "empty_slot"
	ReasonShutdown  = "shutdown"
)

// Metrics holds the engine collectors. Every method accepts a nil receiver so
// the engine can run without metrics.
type Metrics struct {
	samplesActive   prometheus.Gauge
	groups          prometheus.Gauge
	samplesAdded    prometheus.Counter
	samplesRetired  *prometheus.CounterVec
	workerPasses    prometheus.Counter
	backendErrors   *prometheus.CounterVec
	streamUnderruns prometheus.Counter

	collectors []prometheus.Collector
}

// New creates the collectors and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		samplesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamesnd_samples_active",
			Help: "Number of samples in the engine collection",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamesnd_groups",
			Help: "Number of sample groups, including the global group",
		}),
		samplesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamesnd_samples_added_total",
			Help: "Total number of samples added to the engine",
		}),
		samplesRetired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamesnd_samples_retired_total",
			Help: "Total number of samples deleted by the engine",
		}, []string{"reason"}),
		workerPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamesnd_worker_passes_total",
			Help: "Total number of sample update passes run by the worker",
		}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamesnd_backend_errors_total",
			Help: "Total number of failed audio backend calls",
		}, []string{"op"}),
		streamUnderruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gamesnd_stream_underruns_total",
			Help: "Total number of stream voices restarted after running dry",
		}),
	}

	m.collectors = []prometheus.Collector{
		m.samplesActive,
		m.groups,
		m.samplesAdded,
		m.samplesRetired,
		m.workerPasses,
		m.backendErrors,
		m.streamUnderruns,
	}

	for _, c := range m.collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) SetSamplesActive(n int) {
	if m == nil {
		return
	}
	m.samplesActive.Set(float64(n))
}

func (m *Metrics) SetGroups(n int) {
	if m == nil {
		return
	}
	m.groups.Set(float64(n))
}

func (m *Metrics) SampleAdded() {
	if m == nil {
		return
	}
	m.samplesAdded.Inc()
}

func (m *Metrics) SampleRetired(reason string) {
	if m == nil {
		return
	}
	m.samplesRetired.WithLabelValues(reason).Inc()
}

func (m *Metrics) WorkerPass() {
	if m == nil {
		return
	}
	m.workerPasses.Inc()
}

func (m *Metrics) BackendError(op string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) StreamUnderrun() {
	if m == nil {
		return
	}
	m.streamUnderruns.Inc()
}
