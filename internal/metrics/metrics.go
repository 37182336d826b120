// Package metrics exposes weighting counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/Weighting/internal/generation"
	"github.com/MikeSquared-Agency/Weighting/internal/rim"
)

const namespace = "weighting"

// Outcomes of a reverse generation run.
const (
	OutcomeClean  = "clean"
	OutcomeErrors = "errors"
	OutcomeFatal  = "fatal"
)

type Metrics struct {
	Calculations *prometheus.CounterVec
	Iterations   prometheus.Histogram
	Efficiency   prometheus.Histogram
	ReverseRuns  *prometheus.CounterVec
	Warnings     prometheus.Counter
	Commits      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Raking or target weighting runs by scheme and convergence.",
		}, []string{"scheme", "converged"}),
		Iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rim_iterations",
			Help:      "Iterations used per raking run.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
		}),
		Efficiency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "efficiency_score",
			Help:      "Weighting efficiency per run.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		ReverseRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverse_runs_total",
			Help:      "Reverse plan generation runs by outcome.",
		}, []string{"outcome"}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverse_warnings_total",
			Help:      "Warnings reported by reverse plan generation.",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_commits_total",
			Help:      "Plan collections committed to the store.",
		}),
	}
	reg.MustRegister(m.Calculations, m.Iterations, m.Efficiency, m.ReverseRuns, m.Warnings, m.Commits)
	return m
}

// ObserveCalculation records one result. A nil receiver is a no-op.
func (m *Metrics) ObserveCalculation(scheme string, r rim.Result) {
	if m == nil {
		return
	}
	m.Calculations.WithLabelValues(scheme, strconv.FormatBool(r.Converged)).Inc()
	if r.IterationsRequired > 0 {
		m.Iterations.Observe(float64(r.IterationsRequired))
	}
	m.Efficiency.Observe(r.EfficiencyScore)
}

// ObserveReverse records one reverse generation result and returns its
// outcome label.
func (m *Metrics) ObserveReverse(res generation.Result) string {
	outcome := OutcomeClean
	switch {
	case res.Fatal():
		outcome = OutcomeFatal
	case len(res.Errors) > 0:
		outcome = OutcomeErrors
	}
	if m == nil {
		return outcome
	}
	m.ReverseRuns.WithLabelValues(outcome).Inc()
	m.Warnings.Add(float64(len(res.Warnings)))
	return outcome
}

func (m *Metrics) ObserveCommit() {
	if m == nil {
		return
	}
	m.Commits.Inc()
}
