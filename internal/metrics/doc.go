// Package metrics provides Prometheus instruments for the chat backend.
//
// # Instruments
//
//   - chatbackend_turns_total{outcome}: completed conversation turns
//   - chatbackend_turn_duration_seconds: turn latency histogram
//   - chatbackend_tool_executions_total{tool,status}: tool dispatches
//   - chatbackend_tool_execution_duration_seconds{tool}: tool latency
//   - chatbackend_catalog_refreshes_total{outcome}: catalog fetch attempts
//   - chatbackend_catalog_size: tools in the last fetched catalog
//
// # Usage
//
// Instruments register against an explicit prometheus.Registerer so tests
// can use isolated registries:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	m.RecordTurn("done", elapsed)
//
// All record methods are safe on a nil *Metrics, so components accept the
// handle unconditionally and callers omit it when metrics are disabled.
package metrics
