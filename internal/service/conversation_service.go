package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"chatpoll/internal/domain"
	"chatpoll/internal/timefmt"
)

const maxConversationsListed = 100

type ConversationService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	now           timefmt.Clock
	log           *log.Logger
}

func NewConversationService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	now timefmt.Clock,
	logger *log.Logger,
) *ConversationService {
	if now == nil {
		now = timefmt.UTC
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		now:           now,
		log:           logger.WithPrefix("conversations"),
	}
}

// ConversationSummary is one row of a user's chat list.
type ConversationSummary struct {
	ConversationID string      `json:"conversationId"`
	OtherUser      UserSummary `json:"otherUser"`
	LastMessage    string      `json:"lastMessage"`
	Timestamp      string      `json:"timestamp"`
	UnreadCount    int         `json:"unreadCount"`
}

// FindOrStart returns the conversation between starterID and otherID,
// creating it when none exists. The argument order does not matter.
func (s *ConversationService) FindOrStart(ctx context.Context, starterID, otherID string) (string, error) {
	if otherID == "" || starterID == otherID {
		return "", fmt.Errorf("cannot start a conversation with yourself: %w", domain.ErrInvalidInput)
	}

	if conv, err := s.conversations.FindByPair(ctx, starterID, otherID); err != nil {
		return "", fmt.Errorf("find conversation: %w", err)
	} else if conv != nil {
		return conv.ID, nil
	}

	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if other == nil {
		return "", domain.ErrUserNotFound
	}

	conv := &domain.Conversation{
		Participants: [2]string{starterID, otherID},
		CreatedAt:    s.now(),
	}
	err = s.conversations.Create(ctx, conv)
	if errors.Is(err, domain.ErrConflict) {
		// Lost the race to a concurrent start for the same pair.
		existing, ferr := s.conversations.FindByPair(ctx, starterID, otherID)
		if ferr != nil {
			return "", fmt.Errorf("find conversation: %w", ferr)
		}
		if existing == nil {
			return "", fmt.Errorf("conversation for %s vanished after conflict: %w", conv.PairKey(), err)
		}
		return existing.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	s.log.Debug("conversation started", "conversation_id", conv.ID, "pair", conv.PairKey())
	return conv.ID, nil
}

// ListFor returns userID's conversations, most recently active first.
// Conversations whose other participant no longer exists are skipped.
func (s *ConversationService) ListFor(ctx context.Context, userID string) ([]ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(ctx, userID, maxConversationsListed)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	now := s.now()
	res := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		other, err := s.users.GetByID(ctx, c.OtherParticipant(userID))
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if other == nil {
			continue
		}

		unread, err := s.messages.CountUnread(ctx, c.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}

		res = append(res, ConversationSummary{
			ConversationID: c.ID,
			OtherUser:      NewUserSummary(other),
			LastMessage:    c.LastMessage,
			Timestamp:      timefmt.Format(c.LastMessageTime, now),
			UnreadCount:    unread,
		})
	}
	return res, nil
}

// AssertParticipant loads a conversation and checks that userID takes part in it.
func (s *ConversationService) AssertParticipant(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrAccessDenied
	}
	return conv, nil
}
