// ABOUTME: The provider boundary consumed by the catalog bridge and the
// ABOUTME: executor; transports implement it interchangeably.

package tools

import (
	"context"
	"encoding/json"
)

// Provider is a tool-execution service: it lists its catalog and executes
// named operations. Implementations classify failures as *ProviderError so
// callers can distinguish retryable transport trouble from terminal
// rejections.
type Provider interface {
	// FetchCatalog returns the provider's current tool descriptors.
	FetchCatalog(ctx context.Context) ([]ToolDescriptor, error)

	// Execute runs one tool and returns its raw JSON result.
	Execute(ctx context.Context, name string, args map[string]any) (json.RawMessage, error)
}
