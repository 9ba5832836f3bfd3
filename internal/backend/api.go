// ABOUTME: HTTP API handlers for the chat backend: conversation turns,
// ABOUTME: history listing and deletion, health, and audit-backed stats.

package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/francescoreconditi/openai-mcp/internal/audit"
	"github.com/francescoreconditi/openai-mcp/internal/health"
	"github.com/francescoreconditi/openai-mcp/internal/orchestrator"
	"github.com/francescoreconditi/openai-mcp/internal/store"
)

// ChatRequest is the JSON body for POST /chat. A missing use_tools defaults
// to true; a missing conversation_id starts a new conversation.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	UseTools       *bool  `json:"use_tools,omitempty"`
}

// ChatResponse is the JSON response for a completed turn. Error carries the
// degradation notice of a turn that still produced an answer.
type ChatResponse struct {
	ConversationID string    `json:"conversation_id"`
	Response       string    `json:"response"`
	ToolsUsed      []string  `json:"tools_used"`
	Timestamp      time.Time `json:"timestamp"`
	Error          string    `json:"error,omitempty"`
}

// ConversationSummary is one entry in the conversation listing.
type ConversationSummary struct {
	ID            string    `json:"id"`
	MessageCount  int       `json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ListConversationsResponse is the JSON response for GET /conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Count         int                   `json:"count"`
}

// ToolCallView is one requested invocation on an assistant message.
type ToolCallView struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// MessageView is one message in a conversation history response.
type MessageView struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []ToolCallView `json:"tool_calls,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// MessagesResponse is the JSON response for GET /conversations/{id}/messages.
type MessagesResponse struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []MessageView `json:"messages"`
	Count          int           `json:"count"`
}

// DeleteResponse is the JSON response for DELETE /conversations/{id}.
type DeleteResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string        `json:"status"`
	Tools  health.Status `json:"tools"`
}

// ToolStatsResponse is the JSON response for GET /stats/tools.
type ToolStatsResponse struct {
	Tools []audit.ToolStat `json:"tools"`
	Count int              `json:"count"`
}

// RecentExecutionsResponse is the JSON response for GET /stats/recent.
type RecentExecutionsResponse struct {
	Executions []audit.Entry `json:"executions"`
	Count      int           `json:"count"`
}

// handleChat handles POST /chat requests. It runs one conversation turn to
// completion and returns the final answer.
func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		b.sendJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := b.orchestrator.Submit(r.Context(), orchestrator.Request{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		UseTools:       req.UseTools == nil || *req.UseTools,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.sendJSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		b.logger.Error("turn failed", "error", err)
		b.sendJSONError(w, http.StatusBadGateway, "completion failed")
		return
	}

	b.writeJSON(w, http.StatusOK, ChatResponse{
		ConversationID: result.ConversationID,
		Response:       result.Response,
		ToolsUsed:      result.ToolsUsed,
		Timestamp:      time.Now().UTC(),
		Error:          result.Notice,
	})
}

// handleListConversations handles GET /conversations requests.
func (b *Backend) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	infos := b.store.List(r.Context())
	summaries := make([]ConversationSummary, len(infos))
	for i, info := range infos {
		last := info.LastMessageAt
		if last.IsZero() {
			// An empty conversation has no messages yet; report creation.
			last = info.CreatedAt
		}
		summaries[i] = ConversationSummary{
			ID:            info.ID,
			MessageCount:  info.MessageCount,
			CreatedAt:     info.CreatedAt,
			LastMessageAt: last,
		}
	}

	b.writeJSON(w, http.StatusOK, ListConversationsResponse{
		Conversations: summaries,
		Count:         len(summaries),
	})
}

// handleConversationRoutes dispatches /conversations/{id}/messages and
// /conversations/{id} to their handlers.
func (b *Backend) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/conversations/")

	if strings.HasSuffix(path, "/messages") {
		id := strings.TrimSuffix(path, "/messages")
		if id == "" || strings.Contains(id, "/") {
			b.sendJSONError(w, http.StatusBadRequest, "invalid path")
			return
		}
		b.handleConversationMessages(w, r, id)
		return
	}

	if path == "" || strings.Contains(path, "/") {
		b.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}
	b.handleDeleteConversation(w, r, path)
}

// handleConversationMessages handles GET /conversations/{id}/messages.
func (b *Backend) handleConversationMessages(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	messages, err := b.store.Messages(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		b.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		b.logger.Error("failed to load conversation", "error", err, "conversation_id", id)
		b.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	views := make([]MessageView, len(messages))
	for i, msg := range messages {
		view := MessageView{
			Role:      string(msg.Role),
			Content:   msg.Content,
			CallID:    msg.CallID,
			ToolName:  msg.ToolName,
			Timestamp: msg.CreatedAt,
		}
		for _, inv := range msg.Invocations {
			view.ToolCalls = append(view.ToolCalls, ToolCallView{
				CallID:    inv.CallID,
				Name:      inv.Name,
				Arguments: inv.Arguments,
			})
		}
		views[i] = view
	}

	b.writeJSON(w, http.StatusOK, MessagesResponse{
		ConversationID: id,
		Messages:       views,
		Count:          len(views),
	})
}

// handleDeleteConversation handles DELETE /conversations/{id}.
func (b *Backend) handleDeleteConversation(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	err := b.store.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		b.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		b.logger.Error("failed to delete conversation", "error", err, "conversation_id", id)
		b.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	b.writeJSON(w, http.StatusOK, DeleteResponse{
		Status:         "deleted",
		ConversationID: id,
	})
}

// handleHealth handles GET /health requests. The response is always 200 once
// the server is accepting requests; the tools section is the aggregator's
// last snapshot.
func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var toolStatus health.Status
	if b.health != nil {
		toolStatus = b.health.Status()
	}

	b.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Tools:  toolStatus,
	})
}

// handleToolStats handles GET /stats/tools requests.
func (b *Backend) handleToolStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if b.ledger == nil {
		b.sendJSONError(w, http.StatusNotFound, "audit ledger is disabled")
		return
	}

	stats, err := b.ledger.ToolStats(r.Context())
	if err != nil {
		b.logger.Error("failed to query tool stats", "error", err)
		b.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	b.writeJSON(w, http.StatusOK, ToolStatsResponse{
		Tools: stats,
		Count: len(stats),
	})
}

// handleRecentExecutions handles GET /stats/recent requests, optionally
// limited by ?limit=N.
func (b *Backend) handleRecentExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if b.ledger == nil {
		b.sendJSONError(w, http.StatusNotFound, "audit ledger is disabled")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			b.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := b.ledger.ListRecent(r.Context(), limit)
	if err != nil {
		b.logger.Error("failed to list recent executions", "error", err)
		b.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	b.writeJSON(w, http.StatusOK, RecentExecutionsResponse{
		Executions: entries,
		Count:      len(entries),
	})
}

// writeJSON writes a JSON response with the given status code.
func (b *Backend) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		b.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response with the given status code.
func (b *Backend) sendJSONError(w http.ResponseWriter, status int, message string) {
	b.writeJSON(w, status, map[string]string{"error": message})
}
