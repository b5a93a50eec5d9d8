package domain

import "time"

// Message delivery states. Status only moves forward: sent -> delivered -> read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// User represents a registered account.
type User struct {
	ID             string     `validate:"required"`
	Username       string     `validate:"required,max=50"`
	HashedPassword string     `validate:"required"`
	DisplayName    string     `validate:"required,max=100"`
	Avatar         string     `validate:"omitempty,url"`
	Online         bool
	LastSeen       *time.Time
	CreatedAt      time.Time `validate:"required"`
}

// Conversation is the direct-message thread between exactly two users.
type Conversation struct {
	ID              string    `validate:"required"`
	Participants    [2]string `validate:"dive,required"`
	LastMessage     string
	LastMessageTime *time.Time
	CreatedAt       time.Time `validate:"required"`
}

// PairKey returns the order-insensitive key for the participant pair.
func (c *Conversation) PairKey() string {
	return PairKey(c.Participants[0], c.Participants[1])
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// PairKey builds the sorted "a:b" key used to enforce one conversation per pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// Message is a single chat message. ReceiverID is always the non-sender participant.
type Message struct {
	ID             string    `validate:"required"`
	ConversationID string    `validate:"required"`
	SenderID       string    `validate:"required"`
	ReceiverID     string    `validate:"required,nefield=SenderID"`
	Text           string
	Status         string    `validate:"required,oneof=sent delivered read"`
	CreatedAt      time.Time `validate:"required"`
}
