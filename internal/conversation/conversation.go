// Package conversation defines the active message list for a session and
// the store contract the compaction engine writes through.
package conversation

import (
	"context"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one conversation message.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is the active message list for one session.
type Conversation struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	return &Conversation{SessionID: c.SessionID, Messages: msgs}
}

// Store persists conversations. Save replaces the stored state wholesale;
// it is the single point at which the caller-visible conversation changes.
type Store interface {
	Save(ctx context.Context, conv *Conversation) error
	Load(ctx context.Context, sessionID string) (*Conversation, error)
}
