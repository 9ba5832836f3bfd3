// Package backend assembles the chat service and serves its HTTP API.
//
// # Construction
//
// New builds every component from configuration: the conversation store,
// the tool provider for the configured transport (HTTP REST or MCP), the
// TTL-cached catalog bridge, the bounded executor, the completion client,
// the orchestrator, the health aggregator, and the optional audit ledger
// and metrics registry. Disabling tools in config leaves the orchestrator
// running plain completions; disabling audit or metrics leaves those
// endpoints returning 404 or absent.
//
// # HTTP API
//
// POST /chat runs one conversation turn. GET /conversations lists
// conversations, GET /conversations/{id}/messages returns one history, and
// DELETE /conversations/{id} removes one. GET /health always answers 200
// with the tool upstream's last probed status. GET /stats/tools and
// GET /stats/recent serve the audit ledger's aggregates and raw entries.
// Errors are JSON objects of the form {"error": message}.
//
// # Lifecycle
//
// Run listens, starts the health probe loop, and blocks until the context
// is canceled or the server fails, then drains the server under the
// configured shutdown timeout and closes the provider and ledger, joining
// any close errors into the returned error.
package backend
