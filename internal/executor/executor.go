// ABOUTME: Tool invocation execution against the provider with per-call
// ABOUTME: timeouts, retry on transport failure, and bounded fan-out.

package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// Defaults for execution budgets.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultRetryBaseDelay = 200 * time.Millisecond
	DefaultMaxAttempts    = 3
	DefaultMaxConcurrent  = 8
)

// Options tunes execution budgets. Zero values use the defaults.
type Options struct {
	// Timeout bounds a single tool call, per attempt.
	Timeout time.Duration
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration
	// MaxAttempts bounds attempts per invocation, first try included.
	MaxAttempts int
	// MaxConcurrent bounds in-flight calls during ExecuteAll.
	MaxConcurrent int
}

// Executor runs tool invocations against a provider. Failures become
// ToolResults, never errors: a turn keeps its remaining invocations alive
// when one of them fails.
type Executor struct {
	provider tools.Provider
	logger   *slog.Logger

	timeout        time.Duration
	retryBaseDelay time.Duration
	maxAttempts    int
	maxConcurrent  int
}

// New creates an Executor over the given provider. A nil logger uses
// slog.Default().
func New(provider tools.Provider, opts Options, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}

	return &Executor{
		provider:       provider,
		logger:         logger.With("component", "executor"),
		timeout:        opts.Timeout,
		retryBaseDelay: opts.RetryBaseDelay,
		maxAttempts:    opts.MaxAttempts,
		maxConcurrent:  opts.MaxConcurrent,
	}
}

// Execute runs one invocation. Only transport-level failures (kind
// unavailable) are retried; validation rejections, execution failures, and
// per-call timeouts are terminal. Elapsed on the result covers all attempts.
func (e *Executor) Execute(ctx context.Context, inv tools.ToolInvocation) tools.ToolResult {
	start := time.Now()
	result := e.execute(ctx, inv)
	result.Elapsed = time.Since(start)

	if result.OK {
		e.logger.Debug("tool executed",
			"tool", inv.Name,
			"call_id", inv.CallID,
			"elapsed", result.Elapsed)
	} else {
		e.logger.Warn("tool execution failed",
			"tool", inv.Name,
			"call_id", inv.CallID,
			"kind", result.Err.Kind,
			"error", result.Err.Message,
			"elapsed", result.Elapsed)
	}
	return result
}

func (e *Executor) execute(ctx context.Context, inv tools.ToolInvocation) tools.ToolResult {
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		payload, err := e.provider.Execute(callCtx, inv.Name, inv.Arguments)
		timedOut := callCtx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil {
			return tools.OkResult(inv.CallID, payload)
		}

		if ctx.Err() != nil {
			return tools.ErrResult(inv.CallID, tools.KindUnavailable, "canceled: %v", ctx.Err())
		}
		if timedOut {
			return tools.ErrResult(inv.CallID, tools.KindTimeout, "tool %s timed out after %s", inv.Name, e.timeout)
		}

		var pErr *tools.ProviderError
		if !errors.As(err, &pErr) {
			return tools.ErrResult(inv.CallID, tools.KindFailed, "%v", err)
		}
		if pErr.Kind != tools.KindUnavailable || attempt >= e.maxAttempts {
			return tools.ErrResult(inv.CallID, pErr.Kind, "%s", pErr.Error())
		}

		e.logger.Debug("retrying tool after transport failure",
			"tool", inv.Name,
			"call_id", inv.CallID,
			"attempt", attempt,
			"error", err)
		if !e.sleep(ctx, attempt) {
			return tools.ErrResult(inv.CallID, tools.KindUnavailable, "canceled: %v", ctx.Err())
		}
	}
}

// ExecuteAll runs the invocation set concurrently under the in-flight bound.
// The returned slice is positionally aligned with the invocations; every
// invocation receives exactly one result.
func (e *Executor) ExecuteAll(ctx context.Context, invocations []tools.ToolInvocation) []tools.ToolResult {
	results := make([]tools.ToolResult, len(invocations))

	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, inv := range invocations {
		g.Go(func() error {
			results[i] = e.Execute(ctx, inv)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; Wait only joins

	return results
}

// sleep waits out the attempt's backoff delay, reporting false when the
// context is canceled first.
func (e *Executor) sleep(ctx context.Context, attempt int) bool {
	delay := e.retryBaseDelay << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
