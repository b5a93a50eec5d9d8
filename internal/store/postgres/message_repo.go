package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"chatpoll/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, conversation_id, sender_id, receiver_id, text, status, created_at`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if err := domain.ValidateNew(m); err != nil {
		return err
	}
	convID, ok1 := parseID(m.ConversationID)
	senderID, ok2 := parseID(m.SenderID)
	receiverID, ok3 := parseID(m.ReceiverID)
	if !ok1 || !ok2 || !ok3 {
		return fmt.Errorf("insert message: %w", domain.ErrInvalidInput)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, text, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, convID, senderID, receiverID, m.Text, m.Status, m.CreatedAt).Scan(&id); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.ID = formatID(id)
	return nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	n, ok := parseID(conversationID)
	if !ok {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, n, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return scanMessages(rows)
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, receiverID string) (int, error) {
	convID, ok1 := parseID(conversationID)
	recv, ok2 := parseID(receiverID)
	if !ok1 || !ok2 {
		return 0, nil
	}
	var count int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND receiver_id = $2 AND status <> 'read'
	`, convID, recv).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, receiverID string) (int64, error) {
	convID, ok1 := parseID(conversationID)
	recv, ok2 := parseID(receiverID)
	if !ok1 || !ok2 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET status = 'read'
		WHERE conversation_id = $1 AND receiver_id = $2 AND status <> 'read'
	`, convID, recv)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

func (r *MessageRepo) ListForUserSince(ctx context.Context, userID, sinceID string, limit int) ([]*domain.Message, error) {
	var since int64
	if sinceID != "" {
		n, ok := parseID(sinceID)
		if !ok {
			return nil, fmt.Errorf("poll cursor %q: %w", sinceID, domain.ErrInvalidInput)
		}
		since = n
	}
	uid, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	// BIGSERIAL ids are assigned in insertion order within a session; under
	// concurrent inserts a lower id can commit after a higher one is visible.
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_id = $1 OR receiver_id = $1) AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`, uid, since, limit)
	if err != nil {
		return nil, fmt.Errorf("poll messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	var res []*domain.Message
	for rows.Next() {
		var (
			m                          domain.Message
			id, convID, sender, recver int64
		)
		if err := rows.Scan(&id, &convID, &sender, &recver, &m.Text, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ID = formatID(id)
		m.ConversationID = formatID(convID)
		m.SenderID = formatID(sender)
		m.ReceiverID = formatID(recver)
		m.CreatedAt = m.CreatedAt.UTC()
		res = append(res, &m)
	}
	return res, rows.Err()
}
