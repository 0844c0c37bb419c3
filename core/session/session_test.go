package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UnknownSessionIsEmpty(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})

	sess, err := store.Get(context.Background(), "never-seen")
	require.NoError(t, err)

	assert.Equal(t, "never-seen", sess.SessionID)
	assert.Equal(t, SchemaVersion, sess.Version)
	assert.Empty(t, sess.Turns)
}

func TestMemoryStore_AppendPreservesOrder(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", NewTurn(RoleUser, "hello")))
	require.NoError(t, store.Append(ctx, "s1",
		NewTurn(RoleAssistant, "hi"),
		NewTurn(RoleUser, "how are you"),
	))

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	require.Len(t, sess.Turns, 3)
	assert.Equal(t, "hello", sess.Turns[0].Text)
	assert.Equal(t, RoleAssistant, sess.Turns[1].Role)
	assert.Equal(t, "how are you", sess.Turns[2].Text)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", NewTurn(RoleUser, "original")))

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	sess.Turns[0].Text = "mutated"

	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Turns[0].Text)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", NewTurn(RoleUser, "hello")))

	// Advance the clock past the TTL.
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Turns, "expired session must read as empty")

	assert.Equal(t, 1, store.Purge())
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1", NewTurn(RoleUser, "persisted?")))
	require.NoError(t, store.Append(ctx, "s1", NewTurn(RoleAssistant, "yes")))

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	require.Len(t, sess.Turns, 2)
	assert.Equal(t, "persisted?", sess.Turns[0].Text)
	assert.Equal(t, "yes", sess.Turns[1].Text)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
}

func TestSQLiteStore_UnknownSessionIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sess, err := store.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)
}

func TestSQLiteStore_PurgeExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := NewSQLiteStore(SQLiteConfig{Path: path, TTL: time.Nanosecond})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1", NewTurn(RoleUser, "gone soon")))

	time.Sleep(2 * time.Second)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)

	removed, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}
