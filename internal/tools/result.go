// ABOUTME: Tool invocations and their tagged results: an invocation either
// ABOUTME: succeeds with a payload or fails with a kind and message.

package tools

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolInvocation is one requested tool call within a turn.
type ToolInvocation struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ErrorKind classifies a failed tool invocation.
type ErrorKind string

const (
	// KindInvalid marks provider-side argument validation failures. Terminal.
	KindInvalid ErrorKind = "invalid"
	// KindTimeout marks a call that exceeded its per-call budget.
	KindTimeout ErrorKind = "timeout"
	// KindUnavailable marks transport-level failures. The only retryable kind.
	KindUnavailable ErrorKind = "unavailable"
	// KindFailed marks execution errors reported by the provider.
	KindFailed ErrorKind = "failed"
)

// ToolError is the failure half of a ToolResult.
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ToolResult is the tagged outcome of one invocation: either OK with a raw
// JSON payload or a ToolError. Elapsed covers all attempts including retries.
type ToolResult struct {
	CallID  string          `json:"call_id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Err     *ToolError      `json:"error,omitempty"`
	Elapsed time.Duration   `json:"-"`
}

// OkResult builds a successful result.
func OkResult(callID string, payload json.RawMessage) ToolResult {
	return ToolResult{CallID: callID, OK: true, Payload: payload}
}

// ErrResult builds a failed result.
func ErrResult(callID string, kind ErrorKind, format string, args ...any) ToolResult {
	return ToolResult{
		CallID: callID,
		Err:    &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)},
	}
}

// Content renders the result as tool-message text for the completion
// service. String payloads render bare so tools returning prose read
// naturally; other payloads render as their JSON encoding. Failures render
// with their kind so the model can adapt.
func (r ToolResult) Content() string {
	if !r.OK {
		if r.Err == nil {
			return "Error (failed): unknown error"
		}
		return fmt.Sprintf("Error (%s): %s", r.Err.Kind, r.Err.Message)
	}
	if len(r.Payload) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Payload, &s); err == nil {
		return s
	}
	return string(r.Payload)
}

// Status reports "ok" or the error kind, for logs and the audit ledger.
func (r ToolResult) Status() string {
	if r.OK {
		return "ok"
	}
	if r.Err == nil {
		return string(KindFailed)
	}
	return string(r.Err.Kind)
}
