// ABOUTME: Tests for the REST provider: wire format round trips and the
// ABOUTME: classification of transport, status, and envelope failures.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// providerErr unwraps err into a *tools.ProviderError or fails the test.
func providerErr(t *testing.T, err error) *tools.ProviderError {
	t.Helper()
	var perr *tools.ProviderError
	require.ErrorAs(t, err, &perr)
	return perr
}

func TestHTTP_FetchCatalog_ReturnsDescriptors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tools", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"tools": [
				{
					"name": "calculate",
					"description": "Evaluate an arithmetic expression",
					"parameters": {
						"type": "object",
						"properties": {"expression": {"type": "string"}},
						"required": ["expression"]
					}
				},
				{"name": "get_weather", "description": "Weather for a city", "parameters": {"type": "object"}}
			],
			"count": 2
		}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	catalog, err := p.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	assert.Equal(t, "calculate", catalog[0].Name)
	assert.Equal(t, "object", catalog[0].Parameters.Type)
	assert.Equal(t, "string", catalog[0].Parameters.Properties["expression"].Type)
	assert.Equal(t, []string{"expression"}, catalog[0].Parameters.Required)
	assert.Equal(t, "get_weather", catalog[1].Name)
}

func TestHTTP_FetchCatalog_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tools", r.URL.Path)
		_, _ = w.Write([]byte(`{"tools": [], "count": 0}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL+"/", nil, nil)
	_, err := p.FetchCatalog(context.Background())
	require.NoError(t, err)
}

func TestHTTP_FetchCatalog_ConnectionFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.FetchCatalog(context.Background())
	assert.Equal(t, tools.KindUnavailable, providerErr(t, err).Kind)
}

func TestHTTP_FetchCatalog_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.FetchCatalog(context.Background())
	assert.Equal(t, tools.KindUnavailable, providerErr(t, err).Kind)
}

func TestHTTP_FetchCatalog_MalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.FetchCatalog(context.Background())
	assert.Equal(t, tools.KindUnavailable, providerErr(t, err).Kind)
}

func TestHTTP_Execute_ReturnsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tools/execute", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req executeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "calculate", req.Name)
		assert.Equal(t, "2+2", req.Arguments["expression"])

		_, _ = w.Write([]byte(`{"result": {"expression": "2+2", "result": 4}}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	payload, err := p.Execute(context.Background(), "calculate", map[string]any{"expression": "2+2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expression": "2+2", "result": 4}`, string(payload))
}

func TestHTTP_Execute_NotFoundIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "tool not found"}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(context.Background(), "no_such_tool", nil)
	perr := providerErr(t, err)
	assert.Equal(t, tools.KindInvalid, perr.Kind)
	assert.Contains(t, perr.Message, "no_such_tool")
}

func TestHTTP_Execute_ErrorEnvelopeKeepsKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "expression contains invalid characters", "kind": "invalid"}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(context.Background(), "calculate", map[string]any{"expression": "rm -rf"})
	perr := providerErr(t, err)
	assert.Equal(t, tools.KindInvalid, perr.Kind)
	assert.Equal(t, "expression contains invalid characters", perr.Message)
}

func TestHTTP_Execute_MissingKindDefaultsToFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "division by zero"}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(context.Background(), "calculate", map[string]any{"expression": "1/0"})
	perr := providerErr(t, err)
	assert.Equal(t, tools.KindFailed, perr.Kind)
	assert.Equal(t, "division by zero", perr.Message)
}

func TestHTTP_Execute_UnknownKindDefaultsToFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "boom", "kind": "exploded"}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(context.Background(), "calculate", nil)
	assert.Equal(t, tools.KindFailed, providerErr(t, err).Kind)
}

func TestHTTP_Execute_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(context.Background(), "calculate", nil)
	assert.Equal(t, tools.KindUnavailable, providerErr(t, err).Kind)
}

func TestHTTP_Execute_ConnectionFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(context.Background(), "calculate", nil)
	assert.Equal(t, tools.KindUnavailable, providerErr(t, err).Kind)
}

func TestHTTP_Execute_MalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(context.Background(), "calculate", nil)
	assert.Equal(t, tools.KindUnavailable, providerErr(t, err).Kind)
}

func TestHTTP_Execute_CancellationPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewHTTP(srv.URL, nil, nil)
	_, err := p.Execute(ctx, "calculate", nil)
	assert.Equal(t, tools.KindUnavailable, providerErr(t, err).Kind)
	assert.True(t, errors.Is(err, context.Canceled))
}
