// ABOUTME: Adapter over an OpenAI-compatible completion service: maps stored
// ABOUTME: history and function schemas to the wire and tool calls back.

package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lithammer/shortuuid/v4"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/francescoreconditi/openai-mcp/internal/store"
	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// Request is one completion call: the full stored history plus the function
// schemas offered this round. An empty schema list means the request carries
// no tool vocabulary at all.
type Request struct {
	Messages []store.Message
	Schemas  []tools.FunctionSchema
}

// Response is the completion outcome: final content, or one or more
// requested tool invocations (content may accompany them).
type Response struct {
	Content     string
	Invocations []tools.ToolInvocation
}

// Generator is the completion-service surface the client consumes.
// *openai.LLM satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Options carries the per-request model parameters.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client adapts a Generator to the orchestrator's request/response shapes.
type Client struct {
	llm    Generator
	opts   Options
	logger *slog.Logger
}

// New wraps an existing generator. Tests inject fakes here.
func New(llm Generator, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		llm:    llm,
		opts:   opts,
		logger: logger.With("component", "completion"),
	}
}

// NewOpenAI dials an OpenAI-compatible endpoint. An empty baseURL uses the
// OpenAI default.
func NewOpenAI(apiKey, baseURL string, opts Options, logger *slog.Logger) (*Client, error) {
	clientOpts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(opts.Model),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	return New(llm, opts, logger), nil
}

// Complete sends the history and schemas to the completion service and
// returns its answer or requested invocations.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	messages := c.toMessageContent(req.Messages)

	callOpts := []llms.CallOption{
		llms.WithMaxTokens(c.opts.MaxTokens),
		llms.WithTemperature(c.opts.Temperature),
	}
	if len(req.Schemas) > 0 {
		callOpts = append(callOpts, llms.WithTools(toLLMTools(req.Schemas)))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return Response{}, fmt.Errorf("requesting completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Response{}, errors.New("completion returned no choices")
	}

	choice := resp.Choices[0]
	return Response{
		Content:     choice.Content,
		Invocations: c.parseToolCalls(choice.ToolCalls),
	}, nil
}

// toMessageContent maps stored messages onto the completion wire: user to
// human, assistant to ai (with tool-call parts when invocations are
// present), tool to tool with the call id linking back.
func (c *Client) toMessageContent(messages []store.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case store.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))

		case store.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, inv := range msg.Invocations {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   inv.CallID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      inv.Name,
						Arguments: marshalArguments(inv.Arguments),
					},
				})
			}
			out = append(out, mc)

		case store.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.CallID,
					Name:       msg.ToolName,
					Content:    msg.Content,
				}},
			})

		default:
			c.logger.Warn("skipping message with unknown role", "role", msg.Role)
		}
	}
	return out
}

// parseToolCalls converts the response's tool calls into invocations.
// Malformed argument JSON degrades to an empty map, missing call ids are
// synthesized, duplicate ids are dropped after the first occurrence.
func (c *Client) parseToolCalls(calls []llms.ToolCall) []tools.ToolInvocation {
	if len(calls) == 0 {
		return nil
	}

	invocations := make([]tools.ToolInvocation, 0, len(calls))
	seen := make(map[string]bool, len(calls))
	for _, call := range calls {
		if call.FunctionCall == nil || call.FunctionCall.Name == "" {
			c.logger.Warn("dropping tool call without a function", "call_id", call.ID)
			continue
		}

		id := call.ID
		if id == "" {
			id = "call_" + shortuuid.New()
			c.logger.Warn("tool call missing id, synthesized one",
				"tool", call.FunctionCall.Name,
				"call_id", id)
		}
		if seen[id] {
			c.logger.Warn("dropping duplicate tool call id", "call_id", id)
			continue
		}
		seen[id] = true

		args := map[string]any{}
		if raw := call.FunctionCall.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				c.logger.Warn("malformed tool call arguments, using empty map",
					"tool", call.FunctionCall.Name,
					"call_id", id,
					"error", err)
				args = map[string]any{}
			}
		}

		invocations = append(invocations, tools.ToolInvocation{
			CallID:    id,
			Name:      call.FunctionCall.Name,
			Arguments: args,
		})
	}
	return invocations
}

// toLLMTools maps function schemas into the llms tool shape verbatim.
func toLLMTools(schemas []tools.FunctionSchema) []llms.Tool {
	out := make([]llms.Tool, len(schemas))
	for i, s := range schemas {
		out[i] = llms.Tool{
			Type: s.Type,
			Function: &llms.FunctionDefinition{
				Name:        s.Function.Name,
				Description: s.Function.Description,
				Parameters:  s.Function.Parameters,
			},
		}
	}
	return out
}

// marshalArguments renders an argument map as the wire's JSON string.
func marshalArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
