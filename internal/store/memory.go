// ABOUTME: In-memory conversation store with append-only histories and
// ABOUTME: defensive copies on every read and write.

package store

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// MemoryStore holds conversations in process memory. Safe for concurrent
// use; operations on one id are linearized, distinct ids are independent.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	logger        *slog.Logger
}

type conversation struct {
	id        string
	createdAt time.Time
	messages  []Message
}

// New creates an empty MemoryStore.
func New(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		conversations: make(map[string]*conversation),
		logger:        logger.With("component", "store"),
	}
}

// Create adds a new empty conversation and returns its id.
func (s *MemoryStore) Create(ctx context.Context) string {
	id := uuid.New().String()

	s.mu.Lock()
	s.conversations[id] = &conversation{
		id:        id,
		createdAt: time.Now().UTC(),
	}
	s.mu.Unlock()

	s.logger.Debug("created conversation", "id", id)
	return id
}

// Append adds one message to a conversation. Returns ErrNotFound if the id
// is unknown; nothing is mutated in that case.
func (s *MemoryStore) Append(ctx context.Context, id string, msg Message) error {
	return s.AppendAll(ctx, id, msg)
}

// AppendAll adds messages to a conversation in order, all or nothing.
// Returns ErrNotFound if the id is unknown.
func (s *MemoryStore) AppendAll(ctx context.Context, id string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	for _, msg := range msgs {
		m := cloneMessage(msg)
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		conv.messages = append(conv.messages, m)
	}
	return nil
}

// Messages returns the ordered history of a conversation as a copy.
// Returns ErrNotFound if the id is unknown.
func (s *MemoryStore) Messages(ctx context.Context, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]Message, len(conv.messages))
	for i, m := range conv.messages {
		out[i] = cloneMessage(m)
	}
	return out, nil
}

// List summarizes all conversations, newest first.
func (s *MemoryStore) List(ctx context.Context) []ConversationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ConversationInfo, 0, len(s.conversations))
	for _, conv := range s.conversations {
		info := ConversationInfo{
			ID:           conv.id,
			MessageCount: len(conv.messages),
			CreatedAt:    conv.createdAt,
		}
		if n := len(conv.messages); n > 0 {
			info.LastMessageAt = conv.messages[n-1].CreatedAt
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos
}

// Delete removes a conversation. Returns ErrNotFound if the id is unknown.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)

	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

// Len reports the number of conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// cloneMessage copies a message deeply enough that callers and the store
// never share mutable state: the invocation slice and each argument map are
// fresh.
func cloneMessage(m Message) Message {
	out := m
	if len(m.Invocations) > 0 {
		out.Invocations = make([]tools.ToolInvocation, len(m.Invocations))
		for i, inv := range m.Invocations {
			out.Invocations[i] = tools.ToolInvocation{
				CallID:    inv.CallID,
				Name:      inv.Name,
				Arguments: maps.Clone(inv.Arguments),
			}
		}
	}
	return out
}
