// Package audit persists an append-only ledger of tool executions in SQLite.
//
// Each executed tool call becomes one row: which conversation asked, which
// call id it answered, the tool name, arguments, outcome status, error
// message when it failed, and how long it ran. The ledger is optional and
// best-effort: callers record entries after a turn completes and treat write
// failures as log-and-continue, never as a turn failure.
//
// ListRecent serves the raw rows newest first; ToolStats rolls them up per
// tool (call count, error count, average duration) for the stats endpoint.
package audit
