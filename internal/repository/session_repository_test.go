package repository

import (
	"context"
	"testing"
	"time"

	"sql-helper/internal/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionRepo(t *testing.T) (*miniredis.Miniredis, SessionRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewSessionRepository(client)
}

func TestSessionReplaceEvictsPrevious(t *testing.T) {
	mr, repo := newTestSessionRepo(t)
	ctx := context.Background()

	evicted, err := repo.Replace(ctx, "u1@example.com", "tokA", "active", 4*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), evicted)

	evicted, err = repo.Replace(ctx, "u1@example.com", "tokB", "active", 4*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)

	assert.False(t, mr.Exists("session:u1@example.com:tokA"))
	assert.True(t, mr.Exists("session:u1@example.com:tokB"))
	assert.Equal(t, 4*time.Hour, mr.TTL("session:u1@example.com:tokB"))

	members, err := mr.Members("session_index:u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"session:u1@example.com:tokB"}, members)
}

func TestSessionReplaceLeavesOtherIdentities(t *testing.T) {
	mr, repo := newTestSessionRepo(t)
	ctx := context.Background()

	_, err := repo.Replace(ctx, "u1@example.com", "tokA", "active", time.Hour)
	require.NoError(t, err)
	_, err = repo.Replace(ctx, "u2@example.com", "tokA", "active", time.Hour)
	require.NoError(t, err)

	assert.True(t, mr.Exists("session:u1@example.com:tokA"))
	assert.True(t, mr.Exists("session:u2@example.com:tokA"))
}

func TestSessionLookup(t *testing.T) {
	mr, repo := newTestSessionRepo(t)
	ctx := context.Background()

	_, _, found, err := repo.Lookup(ctx, "u1@example.com", "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = repo.Replace(ctx, "u1@example.com", "tok", "active", 4*time.Hour)
	require.NoError(t, err)

	value, ttl, found, err := repo.Lookup(ctx, "u1@example.com", "tok")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "active", value)
	assert.Equal(t, 4*time.Hour, ttl)

	require.NoError(t, mr.Set("session:u1@example.com:forever", "active"))
	_, ttl, found, err = repo.Lookup(ctx, "u1@example.com", "forever")
	require.NoError(t, err)
	assert.True(t, found)
	assert.LessOrEqual(t, ttl, time.Duration(0))
}

func TestSessionDeleteOne(t *testing.T) {
	mr, repo := newTestSessionRepo(t)
	ctx := context.Background()

	_, err := repo.Replace(ctx, "u1@example.com", "tok", "active", time.Hour)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "u1@example.com", "tok"))
	assert.False(t, mr.Exists("session:u1@example.com:tok"))
	assert.False(t, mr.Exists("session_index:u1@example.com"))
}

func TestSessionDeleteAll(t *testing.T) {
	mr, repo := newTestSessionRepo(t)
	ctx := context.Background()

	_, err := repo.Replace(ctx, "u1@example.com", "tok", "active", time.Hour)
	require.NoError(t, err)

	removed, err := repo.DeleteAll(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.False(t, mr.Exists("session:u1@example.com:tok"))
	assert.False(t, mr.Exists("session_index:u1@example.com"))

	removed, err = repo.DeleteAll(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestSessionCountLivePrunesStaleMembers(t *testing.T) {
	mr, repo := newTestSessionRepo(t)
	ctx := context.Background()

	_, err := repo.Replace(ctx, "u1@example.com", "tok", "active", time.Hour)
	require.NoError(t, err)
	_, err = mr.SAdd("session_index:u1@example.com", "session:u1@example.com:gone")
	require.NoError(t, err)

	live, err := repo.CountLive(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), live)
	isMember, err := mr.IsMember("session_index:u1@example.com", "session:u1@example.com:gone")
	require.NoError(t, err)
	assert.False(t, isMember)

	live, err = repo.CountLive(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), live)
}

func TestSessionStoreUnavailable(t *testing.T) {
	mr, repo := newTestSessionRepo(t)
	mr.Close()
	ctx := context.Background()

	_, err := repo.Replace(ctx, "u1@example.com", "tok", "active", time.Hour)
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))

	_, _, _, err = repo.Lookup(ctx, "u1@example.com", "tok")
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))

	_, err = repo.CountLive(ctx, "u1@example.com")
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))
}

func TestSessionKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	repo := NewSessionRepository(client, WithSessionKeyPrefix("sqlhelper:session"))

	_, err := repo.Replace(context.Background(), "u1", "tok", "active", time.Hour)
	require.NoError(t, err)
	assert.True(t, mr.Exists("sqlhelper:session:u1:tok"))
	assert.True(t, mr.Exists("sqlhelper:session_index:u1"))
}
