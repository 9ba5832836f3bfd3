// ABOUTME: REST tool provider speaking the tool server's HTTP wire format:
// ABOUTME: GET /tools for the catalog and POST /tools/execute for execution.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// HTTP is a tool provider backed by a tool server's REST endpoints. All
// failures surface as *tools.ProviderError so the executor and catalog
// bridge can classify them: transport trouble and 5xx responses are
// unavailable (retryable), a 404 on execution is an unknown tool, and an
// error envelope in a 200 body carries the kind the server assigned.
type HTTP struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTP creates a REST provider rooted at baseURL. A nil client falls
// back to a plain http.Client; request deadlines come from the caller's
// context rather than a client-wide timeout.
func NewHTTP(baseURL string, client *http.Client, logger *slog.Logger) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With("component", "provider", "transport", "http"),
	}
}

// catalogEnvelope is the GET /tools response body.
type catalogEnvelope struct {
	Tools []tools.ToolDescriptor `json:"tools"`
	Count int                    `json:"count"`
}

// executeRequest is the POST /tools/execute request body.
type executeRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// executeEnvelope is the POST /tools/execute response body. Exactly one of
// Result and Error is populated.
type executeEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
	Kind   string          `json:"kind"`
}

// FetchCatalog lists the server's tool descriptors.
func (p *HTTP) FetchCatalog(ctx context.Context) ([]tools.ToolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/tools", nil)
	if err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "building catalog request", Cause: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "fetching tool catalog", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &tools.ProviderError{
			Kind:    tools.KindUnavailable,
			Message: fmt.Sprintf("tool server returned status %d for catalog", resp.StatusCode),
		}
	}

	var body catalogEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "decoding tool catalog", Cause: err}
	}

	p.logger.Debug("fetched tool catalog", "tools", len(body.Tools))
	return body.Tools, nil
}

// Execute runs one named tool on the server and returns its raw JSON result.
func (p *HTTP) Execute(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(executeRequest{Name: name, Arguments: args})
	if err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindFailed, Message: "encoding execute request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/tools/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "building execute request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: fmt.Sprintf("executing tool %s", name), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &tools.ProviderError{Kind: tools.KindInvalid, Message: fmt.Sprintf("unknown tool %q", name)}
	case resp.StatusCode >= 500:
		return nil, &tools.ProviderError{
			Kind:    tools.KindUnavailable,
			Message: fmt.Sprintf("tool server returned status %d executing %s", resp.StatusCode, name),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &tools.ProviderError{
			Kind:    tools.KindFailed,
			Message: fmt.Sprintf("tool server returned status %d executing %s", resp.StatusCode, name),
		}
	}

	var body executeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &tools.ProviderError{Kind: tools.KindUnavailable, Message: "decoding execute response", Cause: err}
	}

	if body.Error != "" {
		return nil, &tools.ProviderError{Kind: kindFromWire(body.Kind), Message: body.Error}
	}
	return body.Result, nil
}

// kindFromWire maps a server-reported kind onto an ErrorKind, defaulting to
// failed when the server omits or invents one.
func kindFromWire(kind string) tools.ErrorKind {
	switch k := tools.ErrorKind(kind); k {
	case tools.KindInvalid, tools.KindTimeout, tools.KindUnavailable, tools.KindFailed:
		return k
	default:
		return tools.KindFailed
	}
}
