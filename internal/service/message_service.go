package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"chatpoll/internal/domain"
	"chatpoll/internal/timefmt"
)

const (
	MaxMessageLength = 5000

	maxHistory  = 1000
	maxPollSize = 100
)

type MessageService struct {
	conversations *ConversationService
	convRepo      domain.ConversationRepository
	messages      domain.MessageRepository
	now           timefmt.Clock
	log           *log.Logger
}

func NewMessageService(
	conversations *ConversationService,
	convRepo domain.ConversationRepository,
	messages domain.MessageRepository,
	now timefmt.Clock,
	logger *log.Logger,
) *MessageService {
	if now == nil {
		now = timefmt.UTC
	}
	if logger == nil {
		logger = log.Default()
	}
	return &MessageService{
		conversations: conversations,
		convRepo:      convRepo,
		messages:      messages,
		now:           now,
		log:           logger.WithPrefix("messages"),
	}
}

// MessageSummary is a message as shown inside a conversation.
type MessageSummary struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
	SenderID  string `json:"senderId"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// MessageEvent is a message as delivered by the poll endpoint.
type MessageEvent struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	SenderID       string `json:"senderId"`
	Timestamp      string `json:"timestamp"`
}

func toSummary(m *domain.Message) MessageSummary {
	status := m.Status
	if status == "" {
		status = domain.StatusSent
	}
	return MessageSummary{
		MessageID: m.ID,
		Text:      m.Text,
		SenderID:  m.SenderID,
		Timestamp: timefmt.Clock24(m.CreatedAt),
		Status:    status,
	}
}

// Send stores a message from senderID to the other participant and updates
// the conversation's last-message summary.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, text string) (*MessageSummary, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("message text cannot be empty: %w", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, fmt.Errorf("message text exceeds %d characters: %w", MaxMessageLength, domain.ErrInvalidInput)
	}

	conv, err := s.conversations.AssertParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.OtherParticipant(senderID),
		Text:           text,
		Status:         domain.StatusSent,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	// The message is already stored; a stale chat-list preview is not worth
	// failing the send over.
	if err := s.convRepo.UpdateLastMessage(ctx, conv.ID, text, now); err != nil {
		s.log.Error("update last message", "conversation_id", conv.ID, "message_id", msg.ID, "err", err)
	}

	sum := toSummary(msg)
	return &sum, nil
}

// History returns the conversation's messages, oldest first.
func (s *MessageService) History(ctx context.Context, conversationID, requesterID string) ([]MessageSummary, error) {
	if _, err := s.conversations.AssertParticipant(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID, maxHistory)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	res := make([]MessageSummary, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, toSummary(m))
	}
	return res, nil
}

// MarkRead marks every unread message addressed to requesterID in the
// conversation as read and returns how many changed. Only messages received
// by the requester are touched, so an outsider changes nothing.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, requesterID string) (int64, error) {
	n, err := s.messages.MarkRead(ctx, conversationID, requesterID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

// Poll returns messages sent or received by requesterID after the message
// sinceID, oldest first. An empty sinceID starts from the beginning.
func (s *MessageService) Poll(ctx context.Context, requesterID, sinceID string) ([]MessageEvent, error) {
	msgs, err := s.messages.ListForUserSince(ctx, requesterID, sinceID, maxPollSize)
	if err != nil {
		return nil, fmt.Errorf("poll messages: %w", err)
	}
	res := make([]MessageEvent, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, MessageEvent{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			Text:           m.Text,
			SenderID:       m.SenderID,
			Timestamp:      timefmt.Clock24(m.CreatedAt),
		})
	}
	return res, nil
}
