// Package metrics exports run and phase activity as Prometheus collectors.
package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/process"
)

const namespace = "procflow"

// Metrics implements process.Observer and gate.Notifier.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	phaseFailures *prometheus.CounterVec
	gatesTotal    *prometheus.CounterVec
	runsActive    prometheus.Gauge
}

var (
	_ process.Observer = (*Metrics)(nil)
	_ gate.Notifier    = (*Metrics)(nil)
)

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// Default returns the instance registered with the global Prometheus
// registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_runs_total",
			Help:      "Completed process runs by outcome.",
		}, []string{"process", "outcome"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each phase.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"process", "phase", "status"}),
		phaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_failures_total",
			Help:      "Phases that failed, by failure kind.",
		}, []string{"process", "phase", "kind"}),
		gatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gates_total",
			Help:      "Checkpoints and breakpoints emitted.",
		}, []string{"process", "kind"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Runs currently executing.",
		}),
	}

	register := func(c prometheus.Collector) prometheus.Collector {
		if err := reg.Register(c); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				return already.ExistingCollector
			}
			panic(err)
		}
		return c
	}
	m.runsTotal = register(m.runsTotal).(*prometheus.CounterVec)
	m.phaseDuration = register(m.phaseDuration).(*prometheus.HistogramVec)
	m.phaseFailures = register(m.phaseFailures).(*prometheus.CounterVec)
	m.gatesTotal = register(m.gatesTotal).(*prometheus.CounterVec)
	m.runsActive = register(m.runsActive).(prometheus.Gauge)
	return m
}

// OnRunStart implements process.Observer.
func (m *Metrics) OnRunStart(process.RunInfo) {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

// OnPhase implements process.Observer.
func (m *Metrics) OnPhase(info process.RunInfo, phase process.PhaseRecord) {
	if m == nil || phase.Status == process.PhaseSkipped {
		return
	}
	m.phaseDuration.WithLabelValues(info.ProcessID, phase.Name, string(phase.Status)).Observe(phase.Duration().Seconds())
	if phase.Status == process.PhaseFailed {
		m.phaseFailures.WithLabelValues(info.ProcessID, phase.Name, string(phase.Kind)).Inc()
	}
}

// OnRunFinish implements process.Observer.
func (m *Metrics) OnRunFinish(info process.RunInfo, result process.Result) {
	if m == nil {
		return
	}
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(info.ProcessID, string(result.Status())).Inc()
}

// Notify implements gate.Notifier.
func (m *Metrics) Notify(_ context.Context, req gate.Request) error {
	if m == nil {
		return nil
	}
	m.gatesTotal.WithLabelValues(req.Context.ProcessID, string(req.Kind)).Inc()
	return nil
}
