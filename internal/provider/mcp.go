// ABOUTME: MCP tool provider adapting a Model Context Protocol server to the
// ABOUTME: provider boundary, over streamable HTTP or a stdio subprocess.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// MCPOptions selects the MCP transport. Exactly one of URL (streamable
// HTTP) and Command (stdio subprocess) must be set.
type MCPOptions struct {
	URL     string
	Command string
	Args    []string
}

// MCP is a tool provider backed by an MCP server. The session is dialed
// and initialized lazily on first use and reused afterward; a failed
// handshake is retried on the next call. Tool results carrying IsError are
// failed executions, transport errors are unavailable.
type MCP struct {
	opts   MCPOptions
	logger *slog.Logger

	mu     sync.Mutex
	client *client.Client
	closed bool
}

// NewMCP creates an MCP provider. The connection is not established until
// the first FetchCatalog or Execute call.
func NewMCP(opts MCPOptions, logger *slog.Logger) *MCP {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCP{
		opts:   opts,
		logger: logger.With("component", "provider", "transport", "mcp"),
	}
}

// session returns the initialized client, dialing and running the
// initialize handshake on first use.
func (p *MCP) session(ctx context.Context) (*client.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "mcp provider is closed"}
	}
	if p.client != nil {
		return p.client, nil
	}

	var (
		c   *client.Client
		err error
	)
	switch {
	case p.opts.URL != "":
		c, err = client.NewStreamableHttpClient(p.opts.URL)
		if err != nil {
			return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "creating mcp client", Cause: err}
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "starting mcp transport", Cause: err}
		}
	case p.opts.Command != "":
		// The stdio client starts its subprocess during construction.
		c, err = client.NewStdioMCPClient(p.opts.Command, nil, p.opts.Args...)
		if err != nil {
			return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "starting mcp subprocess", Cause: err}
		}
	default:
		return nil, &tools.ProviderError{Kind: tools.KindInvalid, Message: "mcp transport needs a url or a command"}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "chat-backend", Version: "1.0.0"}

	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "initializing mcp session", Cause: err}
	}

	p.logger.Info("mcp session initialized")
	p.client = c
	return c, nil
}

// FetchCatalog lists the server's tools as descriptors. Tools whose input
// schema cannot be mapped are skipped rather than failing the catalog.
func (p *MCP) FetchCatalog(ctx context.Context) ([]tools.ToolDescriptor, error) {
	c, err := p.session(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "listing mcp tools", Cause: err}
	}

	descriptors := make([]tools.ToolDescriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := schemaFromMCP(t.InputSchema)
		if err != nil {
			p.logger.Warn("skipping tool with unmappable schema", "tool", t.Name, "error", err)
			continue
		}
		descriptors = append(descriptors, tools.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return descriptors, nil
}

// Execute calls one named tool and returns its result as raw JSON. Text
// content that already parses as JSON passes through untouched; anything
// else is returned as a JSON string.
func (p *MCP) Execute(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	c, err := p.session(ctx)
	if err != nil {
		return nil, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: fmt.Sprintf("calling tool %s", name), Cause: err}
	}

	text := textContent(res)
	if res.IsError {
		if text == "" {
			text = fmt.Sprintf("tool %s reported an error", name)
		}
		return nil, &tools.ProviderError{Kind: tools.KindFailed, Message: text}
	}
	return payloadFromText(text), nil
}

// Close shuts the session down. Further calls fail as unavailable.
func (p *MCP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// schemaFromMCP maps an MCP input schema onto the descriptor schema through
// a JSON round trip, dropping schema features the descriptor cannot carry.
func schemaFromMCP(in mcp.ToolInputSchema) (tools.ParamSchema, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return tools.ParamSchema{}, fmt.Errorf("encoding input schema: %w", err)
	}
	var out tools.ParamSchema
	if err := json.Unmarshal(raw, &out); err != nil {
		return tools.ParamSchema{}, fmt.Errorf("mapping input schema: %w", err)
	}
	return out, nil
}

// textContent joins the text parts of a call result.
func textContent(res *mcp.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if tc, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// payloadFromText turns result text into a JSON payload. Valid JSON passes
// through so structured tool output survives; plain text is quoted.
func payloadFromText(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(text)
	return quoted
}
