// ABOUTME: Tests for the tool server's REST surface: catalog listing, tool
// ABOUTME: details, execution envelopes, and method handling.

package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/francescoreconditi/openai-mcp/internal/provider"
	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := NewRegistry(nil)
	require.NoError(t, registry.RegisterAll(Builtins()))

	ts := httptest.NewServer(NewServer(registry, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postExecute(t *testing.T, url string, body string) (int, ExecuteResponse) {
	t.Helper()
	resp, err := http.Post(url+"/tools/execute", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out ExecuteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	var health HealthResponse
	status := getJSON(t, ts.URL+"/health", &health)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 5, health.Tools)
}

func TestServer_ListTools_SortedByName(t *testing.T) {
	ts := newTestServer(t)

	var list ListToolsResponse
	status := getJSON(t, ts.URL+"/tools", &list)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, list.Count)

	names := make([]string, len(list.Tools))
	for i, d := range list.Tools {
		names[i] = d.Name
	}
	assert.Equal(t, []string{
		"calculate",
		"convert_temperature",
		"get_current_time",
		"get_random_number",
		"get_weather",
	}, names)
}

func TestServer_ToolDetails(t *testing.T) {
	ts := newTestServer(t)

	var d tools.ToolDescriptor
	status := getJSON(t, ts.URL+"/tools/calculate", &d)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "calculate", d.Name)
	assert.Equal(t, []string{"expression"}, d.Parameters.Required)
	assert.Equal(t, "string", d.Parameters.Properties["expression"].Type)
}

func TestServer_ToolDetails_UnknownIs404(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	status := getJSON(t, ts.URL+"/tools/no_such_tool", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "no_such_tool")
}

func TestServer_Execute_Success(t *testing.T) {
	ts := newTestServer(t)

	status, out := postExecute(t, ts.URL, `{"name": "calculate", "arguments": {"expression": "2+2"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, out.Error)

	result := out.Result.(map[string]any)
	assert.Equal(t, "2+2", result["expression"])
	assert.InDelta(t, 4, result["result"].(float64), 1e-9)
}

func TestServer_Execute_UnknownToolIs404(t *testing.T) {
	ts := newTestServer(t)

	status, out := postExecute(t, ts.URL, `{"name": "no_such_tool", "arguments": {}}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, out.Error, "no_such_tool")
}

func TestServer_Execute_ValidationFailureEnvelope(t *testing.T) {
	ts := newTestServer(t)

	status, out := postExecute(t, ts.URL, `{"name": "calculate", "arguments": {"expression": "launch missiles"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "invalid", out.Kind)
	assert.NotEmpty(t, out.Error)
	assert.Nil(t, out.Result)
}

func TestServer_Execute_ExecutionFailureEnvelope(t *testing.T) {
	ts := newTestServer(t)

	status, out := postExecute(t, ts.URL, `{"name": "calculate", "arguments": {"expression": "1/0"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "failed", out.Kind)
	assert.Contains(t, out.Error, "division by zero")
}

func TestServer_Execute_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	status, out := postExecute(t, ts.URL, `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid JSON body", out.Error)

	status, out = postExecute(t, ts.URL, `{"arguments": {}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "name is required", out.Error)
}

func TestServer_MethodChecks(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/tools", "application/json", bytes.NewBufferString("{}"))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/tools/execute")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_EndToEndWithHTTPProvider(t *testing.T) {
	// The REST surface is the provider wire contract's reference
	// implementation; a full catalog-and-execute pass through the real
	// client keeps the two sides honest.
	ts := newTestServer(t)
	p := provider.NewHTTP(ts.URL, nil, nil)
	ctx := context.Background()

	catalog, err := p.FetchCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 5)
	for _, d := range catalog {
		require.NoError(t, tools.ValidateDescriptor(d), "descriptor %q must survive the wire", d.Name)
	}

	payload, err := p.Execute(ctx, "convert_temperature", map[string]any{
		"value":     100,
		"from_unit": "celsius",
		"to_unit":   "fahrenheit",
	})
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.InDelta(t, 212, result["converted"].(float64), 1e-9)

	var perr *tools.ProviderError
	_, err = p.Execute(ctx, "calculate", map[string]any{"expression": "1/0"})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, tools.KindFailed, perr.Kind)

	_, err = p.Execute(ctx, "calculate", map[string]any{"expression": "nonsense"})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, tools.KindInvalid, perr.Kind)

	_, err = p.Execute(ctx, "no_such_tool", nil)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, tools.KindInvalid, perr.Kind)
}
