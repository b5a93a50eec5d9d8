package postgres

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
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, hashed_password, display_name, avatar, online, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, u.Username, u.HashedPassword, u.DisplayName, u.Avatar, u.Online, u.LastSeen, u.CreatedAt,
	).Scan(&id)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = formatID(id)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, n))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *UserRepo) ListExcept(ctx context.Context, excludeID string, limit int) ([]*domain.User, error) {
	n, _ := parseID(excludeID)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id <> $1
		ORDER BY id ASC
		LIMIT $2
	`, n, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
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
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET online = $1, last_seen = $2 WHERE id = $3`, online, lastSeen, n,
	); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u  domain.User
		id int64
	)
	err := row.Scan(&id, &u.Username, &u.HashedPassword, &u.DisplayName, &u.Avatar, &u.Online, &u.LastSeen, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = formatID(id)
	u.CreatedAt = u.CreatedAt.UTC()
	if u.LastSeen != nil {
		t := u.LastSeen.UTC()
		u.LastSeen = &t
	}
	return &u, nil
}
