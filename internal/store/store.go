// Package store opens the configured backend and exposes it as a set of
// domain repositories with one lifecycle.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"

	"chatpoll/internal/domain"
	"chatpoll/internal/store/mongo"
	"chatpoll/internal/store/postgres"
	"chatpoll/internal/store/sqlite"
)

// Supported backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Options selects and addresses a backend.
type Options struct {
	Driver      string
	SQLitePath  string
	PostgresURL string
	MongoURL    string
	MongoDB     string

	// ConnectTimeout bounds how long Open keeps retrying the first connection.
	ConnectTimeout time.Duration
}

// Datastore bundles the repositories of one backend.
type Datastore struct {
	Users         domain.UserRepository
	Conversations domain.ConversationRepository
	Messages      domain.MessageRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping reports whether the backend is reachable.
func (d *Datastore) Ping(ctx context.Context) error {
	return d.ping(ctx)
}

// Close releases the backend connection.
func (d *Datastore) Close(ctx context.Context) error {
	return d.close(ctx)
}

// Open connects to the backend named by opts.Driver, retrying with
// exponential backoff until ConnectTimeout, and runs its migrations.
func Open(ctx context.Context, opts Options, logger *log.Logger) (*Datastore, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = opts.ConnectTimeout
	if b.MaxElapsedTime == 0 {
		b.MaxElapsedTime = 30 * time.Second
	}

	var ds *Datastore
	connect := func() error {
		var err error
		ds, err = open(ctx, opts)
		if err != nil {
			if _, unknown := err.(unknownDriverError); unknown {
				return backoff.Permanent(err)
			}
			logger.Warn("datastore not ready, retrying", "driver", opts.Driver, "err", err)
		}
		return err
	}
	if err := backoff.Retry(connect, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	logger.Info("datastore ready", "driver", opts.Driver)
	return ds, nil
}

type unknownDriverError string

func (e unknownDriverError) Error() string {
	return fmt.Sprintf("unknown datastore driver %q", string(e))
}

func open(ctx context.Context, opts Options) (*Datastore, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		db, err := sqlite.Open(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLite(db), nil
	case DriverPostgres:
		db, err := postgres.Open(ctx, opts.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return sqlDatastore(db,
			postgres.NewUserRepo(db),
			postgres.NewConversationRepo(db),
			postgres.NewMessageRepo(db),
		), nil
	case DriverMongo:
		client, db, err := mongo.Open(ctx, opts.MongoURL, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := mongo.Migrate(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return NewMongo(client, db), nil
	default:
		return nil, unknownDriverError(opts.Driver)
	}
}

// NewSQLite wraps an open, migrated SQLite database.
func NewSQLite(db *sql.DB) *Datastore {
	return sqlDatastore(db,
		sqlite.NewUserRepo(db),
		sqlite.NewConversationRepo(db),
		sqlite.NewMessageRepo(db),
	)
}

// NewMongo wraps a connected, migrated MongoDB database.
func NewMongo(client *mongodrv.Client, db *mongodrv.Database) *Datastore {
	return &Datastore{
		Users:         mongo.NewUserRepo(db),
		Conversations: mongo.NewConversationRepo(db),
		Messages:      mongo.NewMessageRepo(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: client.Disconnect,
	}
}

func sqlDatastore(db *sql.DB, users domain.UserRepository, convs domain.ConversationRepository, msgs domain.MessageRepository) *Datastore {
	return &Datastore{
		Users:         users,
		Conversations: convs,
		Messages:      msgs,
		ping:          db.PingContext,
		close: func(context.Context) error {
			return db.Close()
		},
	}
}
