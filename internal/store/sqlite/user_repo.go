package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatpoll/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, username, hashed_password, display_name, avatar, online, last_seen, created_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := domain.ValidateNew(u); err != nil {
		return err
	}
	query := `
		INSERT INTO users (username, hashed_password, display_name, avatar, online, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		u.Username,
		u.HashedPassword,
		u.DisplayName,
		u.Avatar,
		u.Online,
		nullTime(u.LastSeen),
		u.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = formatID(id)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, n))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (r *UserRepo) ListExcept(ctx context.Context, excludeID string, limit int) ([]*domain.User, error) {
	n, _ := parseID(excludeID)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id <> ?
		ORDER BY id ASC
		LIMIT ?
	`, n, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	n, ok := parseID(id)
	if !ok {
		return nil
	}
	query := `UPDATE users SET online = ?, last_seen = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, online, lastSeen.UTC(), n); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepo) scanUser(row rowScanner) (*domain.User, error) {
	var (
		u        domain.User
		id       int64
		lastSeen sql.NullTime
	)
	err := row.Scan(
		&id,
		&u.Username,
		&u.HashedPassword,
		&u.DisplayName,
		&u.Avatar,
		&u.Online,
		&lastSeen,
		&u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = formatID(id)
	u.CreatedAt = u.CreatedAt.UTC()
	u.LastSeen = timePtr(lastSeen)
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
