package store_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpoll/internal/domain"
	"chatpoll/internal/store"
)

func TestOpenUnknownDriverFailsFast(t *testing.T) {
	start := time.Now()
	_, err := store.Open(context.Background(), store.Options{Driver: "cassandra", ConnectTimeout: 10 * time.Second}, log.New(io.Discard))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
	assert.Less(t, time.Since(start), 5*time.Second, "an unknown driver is not retried")
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	ds, err := store.Open(ctx, store.Options{Driver: store.DriverSQLite, SQLitePath: ":memory:"}, log.New(io.Discard))
	require.NoError(t, err)
	defer ds.Close(ctx)

	require.NoError(t, ds.Ping(ctx))
	exerciseDatastore(t, ds)
}

// Backends that need a running server are exercised when their URL is set.
func TestOpenPostgres(t *testing.T) {
	url := os.Getenv("CHATPOLL_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("CHATPOLL_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	ds, err := store.Open(ctx, store.Options{Driver: store.DriverPostgres, PostgresURL: url}, log.New(io.Discard))
	require.NoError(t, err)
	defer ds.Close(ctx)
	exerciseDatastore(t, ds)
}

func TestOpenMongo(t *testing.T) {
	url := os.Getenv("CHATPOLL_TEST_MONGO_URL")
	if url == "" {
		t.Skip("CHATPOLL_TEST_MONGO_URL not set")
	}
	ctx := context.Background()
	dbName := fmt.Sprintf("chatpoll_test_%d", time.Now().UnixNano())
	ds, err := store.Open(ctx, store.Options{Driver: store.DriverMongo, MongoURL: url, MongoDB: dbName}, log.New(io.Discard))
	require.NoError(t, err)
	defer ds.Close(ctx)
	exerciseDatastore(t, ds)
}

// exerciseDatastore runs the same scenario against any backend. Usernames are
// unique per run so a shared database can be reused.
func exerciseDatastore(t *testing.T, ds *store.Datastore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	suffix := fmt.Sprint(now.UnixNano())

	newUser := func(name string) *domain.User {
		u := &domain.User{Username: name + suffix, HashedPassword: "h", DisplayName: name, CreatedAt: now}
		require.NoError(t, ds.Users.Create(ctx, u))
		require.NotEmpty(t, u.ID)
		return u
	}
	alice, bob := newUser("alice"), newUser("bob")

	err := ds.Users.Create(ctx, &domain.User{Username: alice.Username, HashedPassword: "h", DisplayName: "x", CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	long := &domain.User{Username: strings.Repeat("x", 51) + suffix, HashedPassword: "h", DisplayName: "long", CreatedAt: now}
	assert.ErrorIs(t, ds.Users.Create(ctx, long), domain.ErrMalformedDocument)
	stored, err := ds.Users.GetByUsername(ctx, long.Username)
	require.NoError(t, err)
	assert.Nil(t, stored, "a rejected document is never written")

	conv := &domain.Conversation{Participants: [2]string{alice.ID, bob.ID}, CreatedAt: now}
	bogus := &domain.Message{
		ConversationID: "1", SenderID: alice.ID, ReceiverID: bob.ID,
		Text: "x", Status: "bogus", CreatedAt: now,
	}
	assert.ErrorIs(t, ds.Messages.Create(ctx, bogus), domain.ErrMalformedDocument)

	require.NoError(t, ds.Conversations.Create(ctx, conv))
	dup := &domain.Conversation{Participants: [2]string{bob.ID, alice.ID}, CreatedAt: now}
	assert.ErrorIs(t, ds.Conversations.Create(ctx, dup), domain.ErrConflict)

	found, err := ds.Conversations.FindByPair(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, conv.ID, found.ID)

	var ids []string
	for i := 0; i < 3; i++ {
		m := &domain.Message{
			ConversationID: conv.ID, SenderID: alice.ID, ReceiverID: bob.ID,
			Text: fmt.Sprint("m", i), Status: domain.StatusSent, CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, ds.Messages.Create(ctx, m))
		ids = append(ids, m.ID)
	}

	since, err := ds.Messages.ListForUserSince(ctx, bob.ID, ids[0], 100)
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, ids[1], since[0].ID)

	unread, err := ds.Messages.CountUnread(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	n, err := ds.Messages.MarkRead(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
