// ABOUTME: Prometheus instruments for conversation turns, tool executions,
// ABOUTME: and catalog refreshes. A nil *Metrics is a no-op everywhere.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the chat backend.
type Metrics struct {
	// Turn metrics
	TurnsTotal   *prometheus.CounterVec
	TurnDuration prometheus.Histogram

	// Tool execution metrics
	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	// Catalog metrics
	CatalogRefreshesTotal *prometheus.CounterVec
	CatalogSize           prometheus.Gauge
}

// New creates the instruments against the given registerer so tests can use
// isolated registries.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{}

	m.TurnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbackend_turns_total",
			Help: "Total number of conversation turns",
		},
		[]string{"outcome"},
	)

	m.TurnDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbackend_turn_duration_seconds",
			Help:    "Duration of conversation turns in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.ToolExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbackend_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	m.ToolExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbackend_tool_execution_duration_seconds",
			Help:    "Duration of tool executions in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)

	m.CatalogRefreshesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbackend_catalog_refreshes_total",
			Help: "Total number of tool catalog refresh attempts",
		},
		[]string{"outcome"},
	)

	m.CatalogSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatbackend_catalog_size",
			Help: "Number of tools in the last fetched catalog",
		},
	)

	return m
}

// RecordTurn records one completed conversation turn.
func (m *Metrics) RecordTurn(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(duration.Seconds())
}

// RecordToolExecution records one tool execution with its result status.
func (m *Metrics) RecordToolExecution(tool string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordCatalogRefresh records one catalog refresh attempt.
func (m *Metrics) RecordCatalogRefresh(outcome string) {
	if m == nil {
		return
	}
	m.CatalogRefreshesTotal.WithLabelValues(outcome).Inc()
}

// SetCatalogSize records the size of the last fetched catalog.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogSize.Set(float64(n))
}
