package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatpoll/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

const conversationColumns = `id, user_a, user_b, last_message, last_message_time, created_at`

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	if err := domain.ValidateNew(c); err != nil {
		return err
	}
	a, okA := parseID(c.Participants[0])
	b, okB := parseID(c.Participants[1])
	if !okA || !okB {
		return fmt.Errorf("insert conversation: %w", domain.ErrInvalidInput)
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (user_a, user_b, pair_key, last_message, last_message_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a, b, c.PairKey(), c.LastMessage, c.LastMessageTime, c.CreatedAt).Scan(&id)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	c.ID = formatID(id)
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, n))
}

func (r *ConversationRepo) FindByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	return scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE pair_key = $1`, domain.PairKey(userA, userB)))
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Conversation, error) {
	n, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_a = $1 OR user_b = $1
		ORDER BY last_message_time DESC NULLS LAST, id DESC
		LIMIT $2
	`, n, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET last_message = $1, last_message_time = $2 WHERE id = $3
	`, text, at, n); err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		c        domain.Conversation
		id, a, b int64
	)
	err := row.Scan(&id, &a, &b, &c.LastMessage, &c.LastMessageTime, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	c.ID = formatID(id)
	c.Participants = [2]string{formatID(a), formatID(b)}
	c.CreatedAt = c.CreatedAt.UTC()
	if c.LastMessageTime != nil {
		t := c.LastMessageTime.UTC()
		c.LastMessageTime = &t
	}
	return &c, nil
}
