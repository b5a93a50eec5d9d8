package security

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := svc.CreateForUser("42")
		require.NoError(t, err)

		claims, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "42", claims.UserID)
		assert.NotEmpty(t, claims.TokenID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
	})

	t.Run("UniqueTokenIDs", func(t *testing.T) {
		a, err := svc.CreateForUser("42")
		require.NoError(t, err)
		b, err := svc.CreateForUser("42")
		require.NoError(t, err)

		ca, _ := svc.Parse(a)
		cb, _ := svc.Parse(b)
		assert.NotEqual(t, ca.TokenID, cb.TokenID)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenService("other", time.Hour)
		token, err := other.CreateForUser("42")
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		old := NewTokenService("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := old.CreateForUser("42")
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)

	hashed, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hashed)

	assert.True(t, h.Matches("s3cret", hashed))
	assert.False(t, h.Matches("wrong", hashed))
	assert.False(t, h.Matches("s3cret", "not-a-bcrypt-hash"))
}

func TestMemoryRevocations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRevocations()
	r.now = func() time.Time { return now }

	revoked, err := r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, r.Revoke(ctx, "stale", now.Add(-time.Minute)))

	revoked, _ = r.IsRevoked(ctx, "a")
	assert.True(t, revoked)
	revoked, _ = r.IsRevoked(ctx, "stale")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = r.IsRevoked(ctx, "a")
	assert.False(t, revoked)
}

func TestRedisRevocations(t *testing.T) {
	addr := os.Getenv("CHATPOLL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATPOLL_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	r := NewRedisRevocations(client)
	id := uuid.NewString()

	revoked, err := r.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, id, time.Now().Add(time.Minute)))
	revoked, err = r.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, r.prefix+id).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)

	expired := uuid.NewString()
	require.NoError(t, r.Revoke(ctx, expired, time.Now().Add(-time.Second)))
	revoked, err = r.IsRevoked(ctx, expired)
	require.NoError(t, err)
	assert.False(t, revoked)
}
