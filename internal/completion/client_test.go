// ABOUTME: Tests for the completion adapter's history mapping and
// ABOUTME: tool-call parsing against a scripted generator.

package completion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/francescoreconditi/openai-mcp/internal/store"
	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

type fakeGenerator struct {
	mu       sync.Mutex
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = messages
	f.opts = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func textChoice(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}},
	}
}

func toolChoice(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{StopReason: "tool_calls", ToolCalls: calls}},
	}
}

func TestClient_Complete_ReturnsContent(t *testing.T) {
	gen := &fakeGenerator{resp: textChoice("The answer is 4.")}
	client := New(gen, Options{Model: "gpt-4o-mini"}, nil)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "What is 2+2?"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "The answer is 4.", resp.Content)
	assert.Empty(t, resp.Invocations)
}

func TestClient_Complete_MapsHistory(t *testing.T) {
	gen := &fakeGenerator{resp: textChoice("done")}
	client := New(gen, Options{}, nil)

	history := []store.Message{
		{Role: store.RoleUser, Content: "What time is it in Tokyo?"},
		{
			Role: store.RoleAssistant,
			Invocations: []tools.ToolInvocation{{
				CallID:    "call_1",
				Name:      "get_current_time",
				Arguments: map[string]any{"timezone": "Asia/Tokyo"},
			}},
		},
		{
			Role:     store.RoleTool,
			CallID:   "call_1",
			ToolName: "get_current_time",
			Content:  `{"time":"09:00"}`,
		},
		{Role: store.RoleUser, Content: "Thanks!"},
	}

	_, err := client.Complete(context.Background(), Request{Messages: history})
	require.NoError(t, err)
	require.Len(t, gen.messages, 4)

	assert.Equal(t, llms.ChatMessageTypeHuman, gen.messages[0].Role)
	require.Len(t, gen.messages[0].Parts, 1)
	assert.Equal(t, llms.TextContent{Text: "What time is it in Tokyo?"}, gen.messages[0].Parts[0])

	assert.Equal(t, llms.ChatMessageTypeAI, gen.messages[1].Role)
	require.Len(t, gen.messages[1].Parts, 1)
	call, ok := gen.messages[1].Parts[0].(llms.ToolCall)
	require.True(t, ok, "assistant part should be a tool call")
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "function", call.Type)
	require.NotNil(t, call.FunctionCall)
	assert.Equal(t, "get_current_time", call.FunctionCall.Name)
	assert.JSONEq(t, `{"timezone":"Asia/Tokyo"}`, call.FunctionCall.Arguments)

	assert.Equal(t, llms.ChatMessageTypeTool, gen.messages[2].Role)
	require.Len(t, gen.messages[2].Parts, 1)
	toolResp, ok := gen.messages[2].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok, "tool part should be a tool call response")
	assert.Equal(t, "call_1", toolResp.ToolCallID)
	assert.Equal(t, "get_current_time", toolResp.Name)
	assert.Equal(t, `{"time":"09:00"}`, toolResp.Content)

	assert.Equal(t, llms.ChatMessageTypeHuman, gen.messages[3].Role)
}

func TestClient_Complete_AssistantTextAndCallsShareMessage(t *testing.T) {
	gen := &fakeGenerator{resp: textChoice("done")}
	client := New(gen, Options{}, nil)

	history := []store.Message{
		{
			Role:    store.RoleAssistant,
			Content: "Let me check that.",
			Invocations: []tools.ToolInvocation{{
				CallID:    "call_9",
				Name:      "get_weather",
				Arguments: map[string]any{"location": "Paris"},
			}},
		},
	}

	_, err := client.Complete(context.Background(), Request{Messages: history})
	require.NoError(t, err)
	require.Len(t, gen.messages, 1)
	require.Len(t, gen.messages[0].Parts, 2)

	assert.Equal(t, llms.TextContent{Text: "Let me check that."}, gen.messages[0].Parts[0])
	_, ok := gen.messages[0].Parts[1].(llms.ToolCall)
	assert.True(t, ok)
}

func TestClient_Complete_PassesSchemasAndModelParams(t *testing.T) {
	gen := &fakeGenerator{resp: textChoice("hi")}
	client := New(gen, Options{Model: "gpt-4o-mini", MaxTokens: 1024, Temperature: 0.7}, nil)

	schema := tools.FunctionSchema{
		Type: "function",
		Function: tools.FunctionDef{
			Name:        "calculate",
			Description: "Evaluate an arithmetic expression.",
			Parameters: tools.ParamSchema{
				Type: "object",
				Properties: map[string]tools.Property{
					"expression": {Type: "string"},
				},
				Required: []string{"expression"},
			},
		},
	}

	_, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "2+2?"}},
		Schemas:  []tools.FunctionSchema{schema},
	})
	require.NoError(t, err)

	assert.Equal(t, 1024, gen.opts.MaxTokens)
	assert.InDelta(t, 0.7, gen.opts.Temperature, 1e-9)
	require.Len(t, gen.opts.Tools, 1)
	assert.Equal(t, "function", gen.opts.Tools[0].Type)
	require.NotNil(t, gen.opts.Tools[0].Function)
	assert.Equal(t, "calculate", gen.opts.Tools[0].Function.Name)
}

func TestClient_Complete_NoSchemasOmitsTools(t *testing.T) {
	gen := &fakeGenerator{resp: textChoice("hi")}
	client := New(gen, Options{}, nil)

	_, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)

	assert.Empty(t, gen.opts.Tools)
}

func TestClient_Complete_ParsesToolCalls(t *testing.T) {
	gen := &fakeGenerator{resp: toolChoice(
		llms.ToolCall{
			ID:   "call_a",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "calculate",
				Arguments: `{"expression":"2+2"}`,
			},
		},
		llms.ToolCall{
			ID:   "call_b",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "get_current_time",
				Arguments: "",
			},
		},
	)}
	client := New(gen, Options{}, nil)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "2+2 and the time"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Invocations, 2)

	assert.Equal(t, "call_a", resp.Invocations[0].CallID)
	assert.Equal(t, "calculate", resp.Invocations[0].Name)
	assert.Equal(t, map[string]any{"expression": "2+2"}, resp.Invocations[0].Arguments)

	assert.Equal(t, "call_b", resp.Invocations[1].CallID)
	assert.Equal(t, "get_current_time", resp.Invocations[1].Name)
	assert.Empty(t, resp.Invocations[1].Arguments)
}

func TestClient_Complete_MalformedArgumentsDegrade(t *testing.T) {
	gen := &fakeGenerator{resp: toolChoice(llms.ToolCall{
		ID:           "call_bad",
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: "calculate", Arguments: `{"expression":`},
	})}
	client := New(gen, Options{}, nil)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "2+2"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Invocations, 1)

	assert.Equal(t, "call_bad", resp.Invocations[0].CallID)
	assert.NotNil(t, resp.Invocations[0].Arguments)
	assert.Empty(t, resp.Invocations[0].Arguments)
}

func TestClient_Complete_SynthesizesMissingCallID(t *testing.T) {
	gen := &fakeGenerator{resp: toolChoice(llms.ToolCall{
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: "get_current_time", Arguments: "{}"},
	})}
	client := New(gen, Options{}, nil)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "time?"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Invocations, 1)

	id := resp.Invocations[0].CallID
	assert.True(t, strings.HasPrefix(id, "call_"), "synthesized id %q should carry the call_ prefix", id)
	assert.Greater(t, len(id), len("call_"))
}

func TestClient_Complete_DropsDuplicateCallIDs(t *testing.T) {
	gen := &fakeGenerator{resp: toolChoice(
		llms.ToolCall{
			ID:           "call_dup",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "calculate", Arguments: `{"expression":"1+1"}`},
		},
		llms.ToolCall{
			ID:           "call_dup",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "calculate", Arguments: `{"expression":"2+2"}`},
		},
	)}
	client := New(gen, Options{}, nil)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "math"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Invocations, 1)

	assert.Equal(t, map[string]any{"expression": "1+1"}, resp.Invocations[0].Arguments)
}

func TestClient_Complete_DropsCallWithoutFunction(t *testing.T) {
	gen := &fakeGenerator{resp: toolChoice(llms.ToolCall{ID: "call_x", Type: "function"})}
	client := New(gen, Options{}, nil)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Invocations)
}

func TestClient_Complete_NoChoices(t *testing.T) {
	gen := &fakeGenerator{resp: &llms.ContentResponse{}}
	client := New(gen, Options{}, nil)

	_, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestClient_Complete_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	client := New(gen, Options{}, nil)

	_, err := client.Complete(context.Background(), Request{
		Messages: []store.Message{{Role: store.RoleUser, Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requesting completion")
	assert.Contains(t, err.Error(), "rate limited")
}
