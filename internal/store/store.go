// ABOUTME: Data types for conversation history: roles, messages, and the
// ABOUTME: per-conversation summary used by listing endpoints.

package store

import (
	"errors"
	"time"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// ErrNotFound is returned when a requested conversation does not exist
var ErrNotFound = errors.New("conversation not found")

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation history.
type Message struct {
	Role    Role
	Content string

	// Invocations lists the tool calls requested by an assistant message.
	// Empty on user and tool messages.
	Invocations []tools.ToolInvocation

	// CallID and ToolName link a tool message back to the invocation it
	// answers. Empty on user and assistant messages.
	CallID   string
	ToolName string

	CreatedAt time.Time
}

// ConversationInfo summarizes one conversation for listing.
type ConversationInfo struct {
	ID            string
	MessageCount  int
	CreatedAt     time.Time
	LastMessageAt time.Time
}
