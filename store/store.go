// Package store holds conversation history keyed by conversation and
// participant.
package store

import (
	"context"
)

// Roles recorded in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Key addresses the history of one participant within one conversation.
type Key struct {
	ConversationID string
	SenderID       string
}

func (k Key) String() string {
	return k.ConversationID + "/" + k.SenderID
}

// Turn is one chat message in a conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store persists conversation histories. Histories grow by append and are
// never trimmed or expired. Get returns an empty history for unknown keys.
//
// Implementations are safe for concurrent use, but a Get followed by a Set is
// not atomic: callers that read-modify-write must serialize per key (see
// KeyedMutex).
type Store interface {
	Get(ctx context.Context, key Key) ([]Turn, error)
	Set(ctx context.Context, key Key, turns []Turn) error
}
