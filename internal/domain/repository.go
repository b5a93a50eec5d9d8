package domain

import (
	"context"
	"time"
)

// Lookups return (nil, nil) when the record does not exist. An ID that is not
// well-formed for the backend is treated the same as an unknown ID.

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create assigns u.ID. Returns ErrDuplicateUsername if the username is taken.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListExcept(ctx context.Context, excludeID string, limit int) ([]*User, error)
	SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// Create assigns c.ID. Returns ErrConflict if a conversation already exists
	// for the same unordered participant pair.
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	FindByPair(ctx context.Context, userA, userB string) (*Conversation, error)
	// ListForUser returns conversations ordered by last message time, newest
	// first, with conversations that have no messages last.
	ListForUser(ctx context.Context, userID string, limit int) ([]*Conversation, error)
	UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create assigns m.ID. IDs grow strictly in insertion order.
	Create(ctx context.Context, m *Message) error
	ListForConversation(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	CountUnread(ctx context.Context, conversationID, receiverID string) (int, error)
	MarkRead(ctx context.Context, conversationID, receiverID string) (int64, error)
	// ListForUserSince returns messages sent or received by userID with an ID
	// strictly greater than sinceID (all when sinceID is empty), in ID order.
	// Returns ErrInvalidInput if sinceID is not a valid ID.
	ListForUserSince(ctx context.Context, userID, sinceID string, limit int) ([]*Message, error)
}

// Pinger is implemented by datastores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
