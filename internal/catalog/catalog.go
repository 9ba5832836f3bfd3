// ABOUTME: TTL-cached bridge from the tool provider's catalog to the
// ABOUTME: completion service's function-schema vocabulary.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/francescoreconditi/openai-mcp/internal/metrics"
	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// ErrUpstreamUnavailable signals that the provider could not be reached and
// no cached catalog was within its grace window.
var ErrUpstreamUnavailable = errors.New("tool catalog upstream unavailable")

// Default cache windows.
const (
	DefaultTTL          = 30 * time.Second
	DefaultGrace        = 15 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

// Options tunes the cache windows. Zero values use the defaults.
type Options struct {
	// TTL is how long a fetched catalog stays fresh.
	TTL time.Duration
	// Grace extends the TTL window in which a stale catalog may still be
	// served when a refresh fails.
	Grace time.Duration
	// FetchTimeout bounds one upstream fetch, independent of any caller.
	FetchTimeout time.Duration
}

// Bridge caches the provider's tool catalog and serves it in both the
// descriptor and the function-schema shape. Reads within the TTL never
// touch the provider; concurrent refreshes share a single upstream flight.
type Bridge struct {
	provider tools.Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics

	ttl          time.Duration
	grace        time.Duration
	fetchTimeout time.Duration

	group singleflight.Group

	mu        sync.RWMutex
	cached    []tools.ToolDescriptor
	fetchedAt time.Time
}

// New creates a Bridge over the given provider. The metrics handle may be
// nil; a nil logger uses slog.Default().
func New(provider tools.Provider, opts Options, m *metrics.Metrics, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	return &Bridge{
		provider:     provider,
		logger:       logger.With("component", "catalog"),
		metrics:      m,
		ttl:          opts.TTL,
		grace:        opts.Grace,
		fetchTimeout: opts.FetchTimeout,
	}
}

// Tools returns the current catalog, refreshing it when the TTL has lapsed.
// The caller's context only bounds its own wait; the upstream fetch runs
// detached so one canceled caller cannot poison the shared result.
func (b *Bridge) Tools(ctx context.Context) ([]tools.ToolDescriptor, error) {
	if cached, ok := b.fresh(); ok {
		return cached, nil
	}

	ch := b.group.DoChan("catalog", b.refresh)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]tools.ToolDescriptor), nil
	}
}

// Schemas returns the catalog mapped into the completion service's
// function-schema shape.
func (b *Bridge) Schemas(ctx context.Context) ([]tools.FunctionSchema, error) {
	descriptors, err := b.Tools(ctx)
	if err != nil {
		return nil, err
	}

	schemas := make([]tools.FunctionSchema, len(descriptors))
	for i, d := range descriptors {
		schemas[i] = ToFunctionSchema(d)
	}
	return schemas, nil
}

// Probe reports the current catalog size for the health aggregator. It
// shares the cache and refresh path with Tools.
func (b *Bridge) Probe(ctx context.Context) (int, error) {
	descriptors, err := b.Tools(ctx)
	if err != nil {
		return 0, err
	}
	return len(descriptors), nil
}

// refresh performs one shared upstream fetch under the bridge's own timeout.
func (b *Bridge) refresh() (any, error) {
	// A caller that queued behind a completed flight may find the catalog
	// already fresh.
	if cached, ok := b.fresh(); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.fetchTimeout)
	defer cancel()

	descriptors, err := b.provider.FetchCatalog(ctx)
	if err != nil {
		if stale, ok := b.staleWithinGrace(); ok {
			b.logger.Warn("catalog fetch failed, serving stale catalog",
				"error", err,
				"tools", len(stale))
			b.metrics.RecordCatalogRefresh("stale")
			return stale, nil
		}
		b.metrics.RecordCatalogRefresh("error")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	b.mu.Lock()
	b.cached = descriptors
	b.fetchedAt = time.Now()
	b.mu.Unlock()

	b.metrics.RecordCatalogRefresh("ok")
	b.metrics.SetCatalogSize(len(descriptors))
	b.logger.Debug("catalog refreshed", "tools", len(descriptors))

	return descriptors, nil
}

// fresh returns the cached catalog while it is within the TTL.
func (b *Bridge) fresh() ([]tools.ToolDescriptor, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.fetchedAt.IsZero() || time.Since(b.fetchedAt) >= b.ttl {
		return nil, false
	}
	return b.cached, true
}

// staleWithinGrace returns the cached catalog while it is within TTL+grace.
func (b *Bridge) staleWithinGrace() ([]tools.ToolDescriptor, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.fetchedAt.IsZero() || time.Since(b.fetchedAt) >= b.ttl+b.grace {
		return nil, false
	}
	return b.cached, true
}

// ToFunctionSchema maps one descriptor into the completion service's
// function-definition shape. The transform is pure and carries the
// parameter schema verbatim; an empty schema maps to an empty object
// schema.
func ToFunctionSchema(d tools.ToolDescriptor) tools.FunctionSchema {
	params := d.Parameters
	if params.Type == "" {
		params.Type = "object"
	}
	if params.Properties == nil {
		params.Properties = map[string]tools.Property{}
	}

	return tools.FunctionSchema{
		Type: "function",
		Function: tools.FunctionDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		},
	}
}
