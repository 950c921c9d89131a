// Package metrics exposes Prometheus collectors for the interpreter. The
// engine itself stays metrics-free: everything here is driven through
// domain.LifecycleHooks, plus two gauge methods for the serving layer.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/vine/pkg/domain"
)

// Metrics owns a private registry so multiple instances (tests, embedded
// engines) never collide on the global default.
type Metrics struct {
	registry *prometheus.Registry

	dispatches      *prometheus.CounterVec
	sceneEntries    *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	branchAnomalies prometheus.Counter
	saves           *prometheus.CounterVec
	loads           *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vine_command_dispatches_total",
				Help: "Commands dispatched by the interpreter loop",
			},
			[]string{"type"},
		),
		sceneEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vine_scene_entries_total",
				Help: "Scene entries by transition reason",
			},
			[]string{"reason"},
		),
		handlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vine_handler_errors_total",
				Help: "Recovered command handler failures",
			},
			[]string{"type"},
		),
		branchAnomalies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vine_branch_anomalies_total",
				Help: "Branch commands that fell back to fail-open behavior",
			},
		),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vine_slot_saves_total",
				Help: "Save operations by result",
			},
			[]string{"result"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vine_slot_loads_total",
				Help: "Load operations by result",
			},
			[]string{"result"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vine_active_sessions",
				Help: "Sessions currently held by the serving layer",
			},
		),
	}
	m.registry.MustRegister(
		m.dispatches,
		m.sceneEntries,
		m.handlerErrors,
		m.branchAnomalies,
		m.saves,
		m.loads,
		m.activeSessions,
	)
	return m
}

func result(isErr bool) string {
	if isErr {
		return "error"
	}
	return "ok"
}

// Hooks returns lifecycle hooks that record into the collectors. Combine
// with other hooks via domain.JoinHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.StepEvent) {
			m.dispatches.WithLabelValues(string(e.CommandType)).Inc()
		},
		OnSceneEnter: func(_ context.Context, e *domain.SceneEvent) {
			m.sceneEntries.WithLabelValues(e.Reason).Inc()
		},
		OnHandlerError: func(_ context.Context, e *domain.ErrorEvent) {
			m.handlerErrors.WithLabelValues(string(e.CommandType)).Inc()
		},
		OnBranchAnomaly: func(_ context.Context, _ *domain.StepEvent) {
			m.branchAnomalies.Inc()
		},
		OnSave: func(_ context.Context, e *domain.SlotEvent) {
			m.saves.WithLabelValues(result(e.IsError)).Inc()
		},
		OnLoad: func(_ context.Context, e *domain.SlotEvent) {
			m.loads.WithLabelValues(result(e.IsError)).Inc()
		},
	}
}

// SessionOpened and SessionClosed track the serving layer's live session
// count.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
