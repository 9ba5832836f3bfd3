// ABOUTME: Tool registry for the demonstration tool server: validated
// ABOUTME: registration of descriptor/handler pairs and classified execution.

package toolserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// ErrToolNotFound is returned when execution names a tool the registry
// does not hold.
var ErrToolNotFound = errors.New("tool not found")

// Handler executes one tool call. Returning a *tools.ValidationError marks
// the failure as argument validation; any other error is an execution
// failure.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool pairs a descriptor with its handler for registration.
type Tool struct {
	Descriptor tools.ToolDescriptor
	Handler    Handler
}

type registration struct {
	descriptor tools.ToolDescriptor
	handler    Handler
}

// Registry holds the server's tools. Registration happens at startup;
// lookups and execution are safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	tools map[string]registration
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger.With("component", "toolserver"),
		tools:  make(map[string]registration),
	}
}

// Register validates the descriptor and adds the tool. Duplicate names and
// invalid descriptors are rejected.
func (r *Registry) Register(d tools.ToolDescriptor, h Handler) error {
	if err := tools.ValidateDescriptor(d); err != nil {
		return fmt.Errorf("registering tool: %w", err)
	}
	if h == nil {
		return fmt.Errorf("registering tool %q: nil handler", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("registering tool %q: already registered", d.Name)
	}
	r.tools[d.Name] = registration{descriptor: d, handler: h}
	r.logger.Info("registered tool", "tool", d.Name)
	return nil
}

// RegisterAll registers a set of tools, stopping at the first failure.
func (r *Registry) RegisterAll(ts []Tool) error {
	for _, t := range ts {
		if err := r.Register(t.Descriptor, t.Handler); err != nil {
			return err
		}
	}
	return nil
}

// Descriptors returns all registered descriptors sorted by name.
func (r *Registry) Descriptors() []tools.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tools.ToolDescriptor, 0, len(r.tools))
	for _, reg := range r.tools {
		out = append(out, reg.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Descriptor returns one descriptor by name.
func (r *Registry) Descriptor(name string) (tools.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.tools[name]
	return reg.descriptor, ok
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a registered tool. Unknown names return ErrToolNotFound;
// handler errors pass through so callers can classify them.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	result, err := reg.handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		return nil, err
	}
	r.logger.Info("executed tool", "tool", name, "elapsed", time.Since(start))
	return result, nil
}
