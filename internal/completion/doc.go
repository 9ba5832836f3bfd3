// Package completion adapts an OpenAI-compatible chat completion service to
// the orchestrator's request and response shapes.
//
// # Mapping
//
// Stored conversation history maps onto the completion wire role by role:
// user messages become human messages, assistant messages become ai messages
// (carrying tool-call parts when the turn requested invocations), and tool
// messages become tool-role messages keyed by their call id. Function
// schemas pass through verbatim as the request's tool definitions.
//
// # Tool Call Parsing
//
// Responses that request tools are normalized defensively rather than
// rejected: malformed argument JSON degrades to an empty argument map, a
// missing call id gets a synthesized "call_" id so the result can still be
// correlated, and duplicate call ids are dropped after the first occurrence.
// Each degradation is logged at warn level.
package completion
