// ABOUTME: REST surface of the tool server: health, catalog listing, tool
// ABOUTME: details, and execution with the {error, kind} envelope.

package toolserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// Server exposes a Registry over the REST wire.
type Server struct {
	registry *Registry
	logger   *slog.Logger
}

// NewServer creates the REST surface for a registry.
func NewServer(registry *Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry: registry,
		logger:   logger.With("component", "toolserver"),
	}
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Tools  int    `json:"tools"`
}

// ListToolsResponse is the JSON response for GET /tools.
type ListToolsResponse struct {
	Tools []tools.ToolDescriptor `json:"tools"`
	Count int                    `json:"count"`
}

// ExecuteRequest is the JSON request body for POST /tools/execute.
type ExecuteRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ExecuteResponse is the JSON response for POST /tools/execute. Success
// carries Result; failure carries Error and Kind.
type ExecuteResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tools", s.handleListTools)
	mux.HandleFunc("/tools/", s.handleToolDetails)
	mux.HandleFunc("/tools/execute", s.handleExecute)
	return mux
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Tools: s.registry.Len()})
}

// handleListTools handles GET /tools requests. Descriptors come back
// sorted by name.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	descriptors := s.registry.Descriptors()
	s.writeJSON(w, http.StatusOK, ListToolsResponse{Tools: descriptors, Count: len(descriptors)})
}

// handleToolDetails handles GET /tools/{name} requests.
func (s *Server) handleToolDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	if name == "" || strings.Contains(name, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	descriptor, ok := s.registry.Descriptor(name)
	if !ok {
		s.sendJSONError(w, http.StatusNotFound, fmt.Sprintf("tool %q not found", name))
		return
	}
	s.writeJSON(w, http.StatusOK, descriptor)
}

// handleExecute handles POST /tools/execute requests. Handler failures are
// reported inside a 200 envelope so the transport distinguishes "the server
// broke" from "the tool failed".
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		s.sendJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	result, err := s.registry.Execute(r.Context(), req.Name, req.Arguments)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			s.sendJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		kind := tools.KindFailed
		var verr *tools.ValidationError
		if errors.As(err, &verr) {
			kind = tools.KindInvalid
		}
		s.writeJSON(w, http.StatusOK, ExecuteResponse{Error: err.Error(), Kind: string(kind)})
		return
	}

	s.writeJSON(w, http.StatusOK, ExecuteResponse{Result: result})
}

// writeJSON writes a JSON response body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
