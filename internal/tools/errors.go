// ABOUTME: Typed errors crossing the provider boundary: transport-classified
// ABOUTME: provider failures and handler-side argument validation failures.

package tools

import "fmt"

// ProviderError is a classified failure from a tool provider. The executor
// branches on Kind to decide between retrying, timing out, and reporting.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ValidationError marks a tool handler rejecting its arguments. Providers
// report it as a terminal invalid outcome rather than an execution failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
