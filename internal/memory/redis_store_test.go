package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, 30*time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	session, err := store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, session.Messages)
	assert.Equal(t, "s1", session.SessionID)

	exists, err := store.SessionExists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)

	now := time.Now()
	require.NoError(t, store.SaveMessage(ctx, "s1", "u1", Message{Role: RoleUser, Content: "hello", Timestamp: now}))
	require.NoError(t, store.SaveMessage(ctx, "s1", "u2", Message{Role: RoleAssistant, Content: "greet", Timestamp: now}))

	session, err = store.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, 2, session.Metadata.MessageCount)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "greet", session.Messages[1].Content)

	assert.True(t, mr.Exists(sessionKeyPrefix+"s1"))
	assert.Equal(t, 30*time.Minute, mr.TTL(sessionKeyPrefix+"s1"))
}

func TestRedisStoreTrim(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	for _, content := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, store.SaveMessage(ctx, "s1", "u", Message{Role: RoleUser, Content: content}))
	}
	require.NoError(t, store.TrimSession(ctx, "s1", 2))

	msgs, err := store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "d", msgs[0].Content)
	assert.Equal(t, "e", msgs[1].Content)

	// no-op when already inside the window
	require.NoError(t, store.TrimSession(ctx, "s1", 5))
	msgs, err = store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestRedisStoreClearAndActivity(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.SaveMessage(ctx, "s1", "u", Message{Role: RoleUser, Content: "x"}))
	mr.FastForward(10 * time.Minute)
	require.NoError(t, store.UpdateActivity(ctx, "s1"))
	assert.Equal(t, 30*time.Minute, mr.TTL(sessionKeyPrefix+"s1"))

	require.NoError(t, store.ClearSession(ctx, "s1"))
	exists, err := store.SessionExists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.SaveMessage(ctx, "s1", "u", Message{Role: RoleUser, Content: "x"}))
	mr.FastForward(31 * time.Minute)

	msgs, err := store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRedisStoreCorruptSession(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, mr.Set(sessionKeyPrefix+"bad", "{not json"))
	_, err := store.LoadSession(ctx, "bad")
	assert.Error(t, err)
}

func TestRedisStoreBehindManager(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)
	m := NewManager(store, 1, nil)

	_, err := m.AppendTurn(ctx, "s1", "first", "greet")
	require.NoError(t, err)
	trimmed, err := m.AppendTurn(ctx, "s1", "second", "affirm")
	require.NoError(t, err)
	assert.True(t, trimmed)

	msgs, err := store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Content)
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "://nope", time.Minute)
	assert.Error(t, err)
}

func TestNewRedisStoreConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close())
}
