// Package toolserver is the standalone tool service the chat backend talks
// to. It registers a small built-in catalog (time, arithmetic, random
// numbers, temperature conversion, mock weather) and serves it over two
// interchangeable surfaces.
//
// # Registry
//
// Tools register once at startup as a descriptor plus a handler. The
// descriptor is validated at registration; duplicates are rejected. A
// handler returning *tools.ValidationError reports bad arguments, which the
// surfaces translate to the "invalid" failure kind; any other error is an
// execution failure.
//
// # Surfaces
//
// The REST surface serves GET /health, GET /tools, GET /tools/{name}, and
// POST /tools/execute. Execution failures travel inside a 200 envelope as
// {error, kind}; only an unknown tool is an HTTP-level 404.
//
// The MCP surface serves the same registry over the Model Context Protocol
// (streamable HTTP), for clients that speak MCP instead of the REST wire.
package toolserver
