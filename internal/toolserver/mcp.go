// ABOUTME: MCP surface of the tool server: the registry exposed through a
// ABOUTME: Model Context Protocol server over streamable HTTP.

package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPHandler exposes the registry's tools over the Model Context Protocol.
// Handler results go out as JSON text content; handler errors become
// IsError results rather than protocol failures.
func MCPHandler(registry *Registry, serverName, version string) http.Handler {
	srv := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))

	for _, d := range registry.Descriptors() {
		schema, _ := json.Marshal(d.Parameters)
		name := d.Name

		srv.AddTool(
			mcp.NewToolWithRawSchema(d.Name, d.Description, schema),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				result, err := registry.Execute(ctx, name, req.GetArguments())
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				payload, err := json.Marshal(result)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
				}
				return mcp.NewToolResultText(string(payload)), nil
			},
		)
	}

	return server.NewStreamableHTTPServer(srv)
}
