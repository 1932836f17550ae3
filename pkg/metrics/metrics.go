// Package metrics exposes solver run statistics as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ratings"

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Players    prometheus.Gauge
	Edges      prometheus.Gauge
	Games      prometheus.Gauge
	Iterations prometheus.Gauge
	TotalError prometheus.Gauge
	Converged  prometheus.Gauge
	Runs       *prometheus.CounterVec
	Phase      *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Number of distinct players in the last solved graph.",
		}),
		Edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edges",
			Help:      "Number of player-opponent edges in the last solved graph.",
		}),
		Games: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games",
			Help:      "Number of games ingested for the last run.",
		}),
		Iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "iterations",
			Help:      "Adjustment passes used by the last run.",
		}),
		TotalError: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "total_error",
			Help:      "L1 norm of the error vector at the end of the last run.",
		}),
		Converged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "converged",
			Help:      "1 if the last run converged below epsilon, 0 if it hit the iteration cap.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by result.",
		}, []string{"result"}),
		Phase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock time spent per pipeline phase.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
	}

	m.registry.MustRegister(
		m.Players, m.Edges, m.Games,
		m.Iterations, m.TotalError, m.Converged,
		m.Runs, m.Phase,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveGraph records the graph dimensions.
func (m *Metrics) ObserveGraph(players, edges, games int) {
	m.Players.Set(float64(players))
	m.Edges.Set(float64(edges))
	m.Games.Set(float64(games))
}

// ObserveSolve records the outcome of a solver run.
func (m *Metrics) ObserveSolve(iterations int, totalError float64, converged bool) {
	m.Iterations.Set(float64(iterations))
	m.TotalError.Set(totalError)
	if converged {
		m.Converged.Set(1)
		m.Runs.WithLabelValues("converged").Inc()
	} else {
		m.Converged.Set(0)
		m.Runs.WithLabelValues("capped").Inc()
	}
}

// ObservePhase records the duration of a named phase.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.Phase.WithLabelValues(phase).Observe(d.Seconds())
}

// ObservePhases records a duration per phase name.
func (m *Metrics) ObservePhases(phases map[string]time.Duration) {
	for name, d := range phases {
		m.ObservePhase(name, d)
	}
}

// WriteTextfile writes the current values in the node exporter textfile
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
