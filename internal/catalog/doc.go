// Package catalog bridges the tool provider's catalog into the completion
// service's function-call vocabulary.
//
// # Caching
//
// The Bridge caches the fetched catalog under a TTL (default 30s). Reads
// within the TTL return the cached value without an upstream call. When the
// TTL lapses, the next reader triggers a refresh; concurrent readers share
// that one flight (singleflight) instead of duplicating it. The upstream
// fetch runs under its own timeout (default 10s), detached from the callers
// waiting on it.
//
// # Degradation
//
// When a refresh fails and the cached catalog is still within a grace
// window past its TTL (default 15s), the stale catalog is served and a
// warning is logged. Past the grace window the fetch fails with
// ErrUpstreamUnavailable, which the orchestrator treats as a signal to run
// the turn without tools.
//
// # Schema Transform
//
// ToFunctionSchema maps a descriptor verbatim into the
// {"type":"function","function":{...}} shape the completion service
// expects. No semantic narrowing happens in the transform; an empty
// parameter schema becomes an empty object schema.
package catalog
