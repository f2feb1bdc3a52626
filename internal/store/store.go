// Package store defines the read-only view of stored conversations shared by
// the supabase, postgres and sqlite backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no conversation matches an id.
var ErrNotFound = errors.New("not found")

// DefaultListLimit caps the number of conversations on the list page.
const DefaultListLimit = 50

type Conversation struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Summary   string          `json:"summary"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	AgentName      string    `json:"agent_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store reads conversations and their messages.
type Store interface {
	// Conversation returns the conversation with the given id, or an error
	// wrapping ErrNotFound.
	Conversation(ctx context.Context, id string) (*Conversation, error)
	// Messages returns the messages of a conversation ordered by creation
	// time, oldest first. No rows is an empty slice, not an error.
	Messages(ctx context.Context, conversationID string) ([]Message, error)
	// Conversations returns up to limit conversations, newest first.
	Conversations(ctx context.Context, limit int) ([]Conversation, error)
	Close()
}
