// Package executor runs tool invocations against a provider under explicit
// budgets.
//
// # Semantics
//
// Execute turns every failure into a ToolResult instead of an error, so one
// bad invocation never aborts its siblings or the turn:
//
//   - per-call timeout (default 30s) → {ok:false, kind:timeout}
//   - transport failure (kind unavailable) → retried with exponential
//     backoff (default 200ms base, doubled, 3 attempts) before reporting
//   - validation rejection (kind invalid) and provider-reported execution
//     failure (kind failed) → terminal, never retried
//   - parent-context cancellation → stops retrying, yields an unavailable
//     result marked canceled
//
// # Fan-out
//
// ExecuteAll dispatches an invocation set concurrently under a bounded pool
// (default 8 in flight). Results are positionally aligned with the input and
// each carries its call id, so the result set keyed by call id does not
// depend on completion order.
package executor
