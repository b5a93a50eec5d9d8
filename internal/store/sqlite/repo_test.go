package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpoll/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrations must be idempotent")
	return db
}

var base = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func createUser(t *testing.T, repo *UserRepo, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:       username,
		HashedPassword: "hash",
		DisplayName:    username,
		CreatedAt:      base,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(newTestDB(t))

	alice := createUser(t, repo, "alice")
	bob := createUser(t, repo, "bob")
	assert.NotEqual(t, alice.ID, bob.ID)

	t.Run("DuplicateUsername", func(t *testing.T) {
		err := repo.Create(ctx, &domain.User{Username: "alice", HashedPassword: "x", DisplayName: "x", CreatedAt: base})
		assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
	})

	t.Run("Lookups", func(t *testing.T) {
		got, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.ID, got.ID)
		assert.Nil(t, got.LastSeen)
		assert.True(t, base.Equal(got.CreatedAt))

		got, err = repo.GetByUsername(ctx, "Alice")
		require.NoError(t, err)
		assert.Nil(t, got, "usernames are case-sensitive")

		got, err = repo.GetByID(ctx, "not-a-number")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListExcept", func(t *testing.T) {
		users, err := repo.ListExcept(ctx, alice.ID, 100)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, bob.ID, users[0].ID)
	})

	t.Run("SetPresence", func(t *testing.T) {
		seen := base.Add(time.Hour)
		require.NoError(t, repo.SetPresence(ctx, bob.ID, true, seen))

		got, err := repo.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.True(t, got.Online)
		require.NotNil(t, got.LastSeen)
		assert.True(t, seen.Equal(*got.LastSeen))
	})
}

func TestConversationRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepo(db)
	repo := NewConversationRepo(db)

	a := createUser(t, users, "a")
	b := createUser(t, users, "b")
	c := createUser(t, users, "c")

	ab := &domain.Conversation{Participants: [2]string{a.ID, b.ID}, CreatedAt: base}
	require.NoError(t, repo.Create(ctx, ab))

	t.Run("PairIsUnique", func(t *testing.T) {
		dup := &domain.Conversation{Participants: [2]string{b.ID, a.ID}, CreatedAt: base}
		assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)
	})

	t.Run("FindByPairIgnoresOrder", func(t *testing.T) {
		got, err := repo.FindByPair(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, ab.ID, got.ID)
		assert.Equal(t, [2]string{a.ID, b.ID}, got.Participants)
		assert.Equal(t, "", got.LastMessage)
		assert.Nil(t, got.LastMessageTime)

		got, err = repo.FindByPair(ctx, a.ID, c.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListForUserOrdering", func(t *testing.T) {
		ac := &domain.Conversation{Participants: [2]string{a.ID, c.ID}, CreatedAt: base}
		require.NoError(t, repo.Create(ctx, ac))
		bc := &domain.Conversation{Participants: [2]string{c.ID, b.ID}, CreatedAt: base}
		require.NoError(t, repo.Create(ctx, bc))

		require.NoError(t, repo.UpdateLastMessage(ctx, bc.ID, "old", base.Add(time.Minute)))
		require.NoError(t, repo.UpdateLastMessage(ctx, ac.ID, "new", base.Add(2*time.Minute)))

		convs, err := repo.ListForUser(ctx, c.ID, 100)
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, ac.ID, convs[0].ID)
		assert.Equal(t, "new", convs[0].LastMessage)
		assert.Equal(t, bc.ID, convs[1].ID)

		convs, err = repo.ListForUser(ctx, a.ID, 100)
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, ac.ID, convs[0].ID)
		assert.Equal(t, ab.ID, convs[1].ID, "conversations without messages sort last")
	})
}

func TestMessageRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepo(db)
	convs := NewConversationRepo(db)
	repo := NewMessageRepo(db)

	a := createUser(t, users, "a")
	b := createUser(t, users, "b")
	conv := &domain.Conversation{Participants: [2]string{a.ID, b.ID}, CreatedAt: base}
	require.NoError(t, convs.Create(ctx, conv))

	var ids []string
	for i := 0; i < 5; i++ {
		m := &domain.Message{
			ConversationID: conv.ID,
			SenderID:       a.ID,
			ReceiverID:     b.ID,
			Text:           "hi",
			Status:         domain.StatusSent,
			// Same instant on purpose: ordering must not depend on timestamps.
			CreatedAt: base,
		}
		require.NoError(t, repo.Create(ctx, m))
		ids = append(ids, m.ID)
	}

	t.Run("PollSinceCursor", func(t *testing.T) {
		msgs, err := repo.ListForUserSince(ctx, b.ID, ids[2], 100)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, ids[3], msgs[0].ID)
		assert.Equal(t, ids[4], msgs[1].ID)

		msgs, err = repo.ListForUserSince(ctx, a.ID, "", 3)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, ids[0], msgs[0].ID)

		_, err = repo.ListForUserSince(ctx, a.ID, "bogus", 100)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("MarkRead", func(t *testing.T) {
		n, err := repo.CountUnread(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		updated, err := repo.MarkRead(ctx, conv.ID, a.ID)
		require.NoError(t, err)
		assert.Zero(t, updated, "sender has nothing to mark")

		updated, err = repo.MarkRead(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 5, updated)

		n, err = repo.CountUnread(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		msgs, err := repo.ListForConversation(ctx, conv.ID, 1000)
		require.NoError(t, err)
		require.Len(t, msgs, 5)
		for _, m := range msgs {
			assert.Equal(t, domain.StatusRead, m.Status)
		}
	})
}

func TestCreateRejectsMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepo(db)
	a := createUser(t, users, "alice")

	err := users.Create(ctx, &domain.User{Username: "nameless", HashedPassword: "h", CreatedAt: base})
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)

	err = NewMessageRepo(db).Create(ctx, &domain.Message{
		ConversationID: "1", SenderID: a.ID, ReceiverID: a.ID, Text: "x", Status: "bogus", CreatedAt: base,
	})
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}
