package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Open opens a SQLite database with the given DSN. In-memory databases are
// pinned to a single connection so every query sees the same schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+"_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Migrate creates the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			username        VARCHAR(50)  NOT NULL UNIQUE,
			hashed_password VARCHAR(255) NOT NULL,
			display_name    VARCHAR(100) NOT NULL,
			avatar          TEXT         NOT NULL DEFAULT '',
			online          BOOLEAN      NOT NULL DEFAULT 0,
			last_seen       DATETIME     DEFAULT NULL,
			created_at      DATETIME     NOT NULL
		);`,
		// pair_key is the sorted participant pair; its uniqueness is what keeps
		// concurrent first contacts from creating two conversations.
		`CREATE TABLE IF NOT EXISTS conversations (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			user_a            INTEGER  NOT NULL,
			user_b            INTEGER  NOT NULL,
			pair_key          TEXT     NOT NULL UNIQUE,
			last_message      TEXT     NOT NULL DEFAULT '',
			last_message_time DATETIME DEFAULT NULL,
			created_at        DATETIME NOT NULL
		);`,
		// AUTOINCREMENT keeps ids from ever being reused, the poll cursor depends on it.
		`CREATE TABLE IF NOT EXISTS messages (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER  NOT NULL,
			sender_id       INTEGER  NOT NULL,
			receiver_id     INTEGER  NOT NULL,
			text            TEXT     NOT NULL,
			status          VARCHAR(16) NOT NULL DEFAULT 'sent',
			created_at      DATETIME NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_a ON conversations(user_a);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_b ON conversations(user_b);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_last_message_time ON conversations(last_message_time DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_status ON messages(conversation_id, receiver_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
