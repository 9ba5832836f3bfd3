// ABOUTME: Turn orchestration: drives the completion/tool loop for one
// ABOUTME: submission while serializing turns per conversation.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/francescoreconditi/openai-mcp/internal/audit"
	"github.com/francescoreconditi/openai-mcp/internal/catalog"
	"github.com/francescoreconditi/openai-mcp/internal/completion"
	"github.com/francescoreconditi/openai-mcp/internal/metrics"
	"github.com/francescoreconditi/openai-mcp/internal/store"
	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// DefaultMaxRounds bounds the completion/tool loop of a single turn.
const DefaultMaxRounds = 5

// Degradation notices attached to a turn's result. They travel to the caller
// alongside the answer, never instead of it.
const (
	// NoticeToolsUnavailable is set when the tool catalog cannot be served
	// and the turn proceeds without tools.
	NoticeToolsUnavailable = "Tool services are temporarily unavailable; this response was generated without tools."

	// NoticeToolLoopExceeded is set when the round bound is hit before the
	// model produced a final answer.
	NoticeToolLoopExceeded = "The tool-call limit for this exchange was reached; the response may be incomplete."
)

// state names the phases of one turn.
type state string

const (
	stateAwaitingUser         state = "AWAITING_USER"
	stateRequestingCompletion state = "REQUESTING_COMPLETION"
	stateAwaitingTools        state = "AWAITING_TOOLS"
	stateDone                 state = "DONE"
	stateFailed               state = "FAILED"
)

// ConversationStore is what the orchestrator needs from conversation storage.
type ConversationStore interface {
	Create(ctx context.Context) string
	Append(ctx context.Context, id string, msg store.Message) error
	AppendAll(ctx context.Context, id string, msgs ...store.Message) error
	Messages(ctx context.Context, id string) ([]store.Message, error)
}

// CompletionClient produces assistant turns from history plus schemas.
type CompletionClient interface {
	Complete(ctx context.Context, req completion.Request) (completion.Response, error)
}

// SchemaSource supplies the function schemas offered on tool-enabled turns.
// The catalog bridge satisfies it.
type SchemaSource interface {
	Schemas(ctx context.Context) ([]tools.FunctionSchema, error)
}

// Dispatcher fans out a round's invocations and joins their results.
// The tool executor satisfies it.
type Dispatcher interface {
	ExecuteAll(ctx context.Context, invocations []tools.ToolInvocation) []tools.ToolResult
}

// Recorder persists executed tool calls to the audit ledger.
type Recorder interface {
	Record(ctx context.Context, e *audit.Entry) error
}

// Options configures the orchestrator. Recorder and Metrics may be nil.
type Options struct {
	MaxRounds int
	Recorder  Recorder
	Metrics   *metrics.Metrics
}

// Request is one user submission.
type Request struct {
	ConversationID string
	Message        string
	UseTools       bool
}

// Result is the completed turn.
type Result struct {
	ConversationID string
	Response       string
	ToolsUsed      []string
	Notice         string
}

// Orchestrator drives the completion/tool loop. Turns on the same
// conversation are serialized; distinct conversations proceed in parallel.
type Orchestrator struct {
	store      ConversationStore
	completion CompletionClient
	schemas    SchemaSource
	dispatcher Dispatcher
	recorder   Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
	maxRounds  int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an orchestrator. The schema source and dispatcher may be nil
// when tool support is disabled entirely; tool-enabled turns then run as
// plain completions.
func New(convStore ConversationStore, client CompletionClient, schemas SchemaSource, dispatcher Dispatcher, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	return &Orchestrator{
		store:      convStore,
		completion: client,
		schemas:    schemas,
		dispatcher: dispatcher,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "orchestrator"),
		maxRounds:  opts.MaxRounds,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Submit runs one turn to completion and returns the final answer.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	result, err := o.submit(ctx, req)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case result.Notice != "":
		outcome = "degraded"
	}
	o.metrics.RecordTurn(outcome, time.Since(start))

	return result, err
}

func (o *Orchestrator) submit(ctx context.Context, req Request) (Result, error) {
	id := req.ConversationID
	if id == "" {
		id = o.store.Create(ctx)
	}

	// One active turn per conversation; later submissions queue here.
	lock := o.conversationLock(id)
	lock.Lock()
	defer lock.Unlock()

	logger := o.logger.With("conversation_id", id)
	current := stateAwaitingUser

	// Record the user message first so the conversation keeps it even when
	// the rest of the turn fails.
	userMsg := store.Message{Role: store.RoleUser, Content: req.Message}
	if err := o.store.Append(ctx, id, userMsg); err != nil {
		return Result{}, fmt.Errorf("recording user message: %w", err)
	}

	useTools, schemas, notice := o.resolveTools(ctx, logger, req.UseTools)
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("turn canceled: %w", err)
	}

	toolsUsed := []string{}
	lastContent := ""

	for round := 1; round <= o.maxRounds; round++ {
		current = o.transition(logger, current, stateRequestingCompletion)

		history, err := o.store.Messages(ctx, id)
		if err != nil {
			return Result{}, fmt.Errorf("loading history: %w", err)
		}

		creq := completion.Request{Messages: history}
		if useTools {
			creq.Schemas = schemas
		}

		resp, err := o.completion.Complete(ctx, creq)
		if err != nil {
			o.transition(logger, current, stateFailed)
			return Result{}, fmt.Errorf("requesting completion: %w", err)
		}

		if len(resp.Invocations) == 0 {
			current = o.transition(logger, current, stateDone)
			assistant := store.Message{Role: store.RoleAssistant, Content: resp.Content}
			if err := o.store.Append(ctx, id, assistant); err != nil {
				return Result{}, fmt.Errorf("recording assistant message: %w", err)
			}

			logger.Info("turn completed",
				"rounds", round,
				"tools_used", len(toolsUsed),
				"degraded", notice != "")
			return Result{
				ConversationID: id,
				Response:       resp.Content,
				ToolsUsed:      toolsUsed,
				Notice:         notice,
			}, nil
		}

		current = o.transition(logger, current, stateAwaitingTools)
		if resp.Content != "" {
			lastContent = resp.Content
		}

		results := o.dispatcher.ExecuteAll(ctx, resp.Invocations)

		// A canceled turn appends nothing from the in-flight round.
		if err := ctx.Err(); err != nil {
			o.transition(logger, current, stateFailed)
			return Result{}, fmt.Errorf("turn canceled: %w", err)
		}

		batch := make([]store.Message, 0, len(results)+1)
		batch = append(batch, store.Message{
			Role:        store.RoleAssistant,
			Content:     resp.Content,
			Invocations: resp.Invocations,
		})
		for i, result := range results {
			inv := resp.Invocations[i]
			batch = append(batch, store.Message{
				Role:     store.RoleTool,
				Content:  result.Content(),
				CallID:   inv.CallID,
				ToolName: inv.Name,
			})
			toolsUsed = append(toolsUsed, inv.Name)
		}
		if err := o.store.AppendAll(ctx, id, batch...); err != nil {
			return Result{}, fmt.Errorf("recording tool round: %w", err)
		}

		o.recordRound(id, resp.Invocations, results)
	}

	o.transition(logger, current, stateFailed)
	logger.Warn("turn hit the round bound before completing",
		"max_rounds", o.maxRounds,
		"tools_used", len(toolsUsed))

	return Result{
		ConversationID: id,
		Response:       lastContent,
		ToolsUsed:      toolsUsed,
		Notice:         joinNotices(notice, NoticeToolLoopExceeded),
	}, nil
}

// resolveTools decides whether this turn runs with tools and fetches the
// schema list when it does. An unavailable catalog degrades the turn to a
// plain completion instead of failing it.
func (o *Orchestrator) resolveTools(ctx context.Context, logger *slog.Logger, useTools bool) (bool, []tools.FunctionSchema, string) {
	if !useTools || o.schemas == nil || o.dispatcher == nil {
		return false, nil, ""
	}

	schemas, err := o.schemas.Schemas(ctx)
	switch {
	case err == nil:
		return true, schemas, ""
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		logger.Warn("tool catalog unavailable, continuing without tools", "error", err)
		return false, nil, NoticeToolsUnavailable
	default:
		// Cancellation lands here; the ctx check after this call fails the
		// turn before the degraded notice can reach the caller.
		logger.Warn("fetching tool schemas failed, continuing without tools", "error", err)
		return false, nil, NoticeToolsUnavailable
	}
}

// recordRound emits metrics and best-effort audit entries for one joined
// round. Audit writes run on a detached context so a canceled request still
// gets its ledger rows; failures are logged and dropped.
func (o *Orchestrator) recordRound(conversationID string, invocations []tools.ToolInvocation, results []tools.ToolResult) {
	for i, result := range results {
		inv := invocations[i]
		o.metrics.RecordToolExecution(inv.Name, result.Status(), result.Elapsed)

		if o.recorder == nil {
			continue
		}

		entry := &audit.Entry{
			ConversationID: conversationID,
			CallID:         inv.CallID,
			Tool:           inv.Name,
			Status:         result.Status(),
			Arguments:      inv.Arguments,
			DurationMS:     result.Elapsed.Milliseconds(),
		}
		if result.Err != nil {
			entry.Error = result.Err.Message
		}

		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.recorder.Record(recordCtx, entry); err != nil {
			o.logger.Warn("failed to record audit entry",
				"error", err,
				"conversation_id", conversationID,
				"tool", inv.Name)
		}
		cancel()
	}
}

// transition logs a state change and returns the new state.
func (o *Orchestrator) transition(logger *slog.Logger, from, to state) state {
	logger.Debug("turn transition", "from", string(from), "to", string(to))
	return to
}

// conversationLock returns the mutex serializing turns for one id.
func (o *Orchestrator) conversationLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}

func joinNotices(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + " " + next
}
