package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the engine.
type Metrics struct {
	registry *prometheus.Registry

	Transitions *prometheus.CounterVec
	SlideViews  *prometheus.CounterVec
	GateChanges *prometheus.CounterVec
	Watermark   prometheus.Histogram
	Commits     *prometheus.CounterVec
	Sessions    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_transitions_total",
				Help: "Slide transitions by cause and matched connection rule",
			},
			[]string{"cause", "rule"},
		),
		SlideViews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_slide_views_total",
				Help: "Number of times a slide became active",
			},
			[]string{"slide_id"},
		),
		GateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_gate_changes_total",
				Help: "Lock flips of the active slide",
			},
			[]string{"state"},
		),
		Watermark: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reel_render_watermark",
				Help:    "Render watermark after each extension",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reel_store_commits_total",
				Help: "Per-slide persistence outcomes",
			},
			[]string{"outcome"},
		),
		Sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reel_active_sessions",
				Help: "Number of open playback sessions",
			},
		),
	}
	m.registry.MustRegister(m.Transitions, m.SlideViews, m.GateChanges, m.Watermark, m.Commits, m.Sessions)
	return m
}

// Registry exposes the registry, e.g. to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSlideEnter: func(_ context.Context, e *domain.SlideEvent) {
			m.SlideViews.WithLabelValues(e.SlideID).Inc()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			rule := e.Rule
			if rule == "" {
				rule = "none"
			}
			m.Transitions.WithLabelValues(string(e.Cause), rule).Inc()
		},
		OnGateChange: func(_ context.Context, e *domain.GateEvent) {
			state := "unlocked"
			if e.Locked {
				state = "locked"
			}
			m.GateChanges.WithLabelValues(state).Inc()
		},
		OnWatermark: func(_ context.Context, wm int) {
			m.Watermark.Observe(float64(wm))
		},
	}
}

// ObserveOutcome counts one persistence outcome.
func (m *Metrics) ObserveOutcome(o domain.Outcome) {
	m.Commits.WithLabelValues(string(o)).Inc()
}
