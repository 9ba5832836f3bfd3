// Package health keeps a continuously refreshed snapshot of the tool
// upstream's availability.
//
// An Aggregator probes the upstream on a fixed interval (immediately on
// Start, then every interval) with a per-probe timeout, and stores the
// outcome as a Status snapshot. Request handlers read the snapshot instead
// of probing inline, so a slow or dead upstream never stalls a health
// endpoint. A failed probe marks the upstream offline with a zero tool
// count; the next successful probe restores it.
package health
