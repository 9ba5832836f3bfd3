// Package tools defines the shared vocabulary for tool-augmented
// conversations: descriptors, invocations, results, and the provider
// boundary.
//
// # Data Model
//
// Core types:
//
//   - ToolDescriptor: a named operation with a declared parameter schema
//   - ToolInvocation: one requested call (name, arguments, call id)
//   - ToolResult: the tagged outcome of one invocation (payload or error)
//   - FunctionSchema: a descriptor mapped into the completion service's
//     function-definition shape
//
// Descriptors are declared statically and validated once at registration
// time via ValidateDescriptor, never inferred at call time.
//
// # Error Taxonomy
//
// ToolResult errors carry an ErrorKind:
//
//   - KindInvalid: arguments rejected by provider-side validation, terminal
//   - KindTimeout: a single call exceeded its budget
//   - KindUnavailable: transport-level failure (connection errors,
//     5xx-equivalent), the only retryable kind
//   - KindFailed: the provider executed the tool and reported an error
//
// Providers signal these through *ProviderError; tool handlers signal
// argument problems through *ValidationError.
//
// # Provider Boundary
//
// Provider is the single interface between the conversation side and a
// tool-execution service. Implementations live in internal/provider
// (HTTP and MCP transports) and are interchangeable.
package tools
