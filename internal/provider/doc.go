// Package provider contains the transport implementations behind the
// tools.Provider interface.
//
// # Transports
//
// HTTP speaks the tool server's REST wire: GET /tools for the catalog and
// POST /tools/execute for execution, with the error envelope {error, kind}
// carried inside a 200 response.
//
// MCP speaks the Model Context Protocol through the mark3labs client,
// either over streamable HTTP (a server URL) or a stdio subprocess (a
// command line). The session initializes lazily on first use.
//
// # Error Classification
//
// Both transports report failures as *tools.ProviderError. Connection
// trouble, 5xx responses, and protocol-level errors are unavailable, which
// is the only kind the executor retries. An unknown tool is invalid.
// Failures the tool itself reports keep the kind the server assigned,
// defaulting to failed.
package provider
