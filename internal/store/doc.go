// Package store provides in-memory conversation storage.
//
// # Data Model
//
//   - Conversation: an ordered, append-only sequence of Messages under one
//     id (UUID), with a creation time
//   - Message: role (user, assistant, tool), text content, and the
//     role-specific fields linking tool invocations to their results
//
// A conversation is created on first submission (or explicitly), mutated
// only through the append operations, and destroyed only by explicit
// deletion. There is no automatic eviction and no persistence across
// restarts.
//
// # Consistency
//
// All operations on one conversation id are linearized; operations on
// distinct ids proceed independently. Histories returned by Messages are
// defensive copies, so callers can never mutate stored state.
//
// # Error Handling
//
//   - ErrNotFound: the conversation id is unknown; the failed operation
//     performs no mutation
//
// All methods accept context.Context to match the storage interfaces
// consumed elsewhere, though the in-memory implementation never blocks on
// it.
package store
