package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/quickstay/internal/platform/session"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(30 * time.Minute)
	s := store.Open("abc")

	_, ok, err := s.Get(ctx, session.KeyResetEmail)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, session.KeyResetEmail, "guest@example.com"))
	require.NoError(t, s.Set(ctx, session.KeyOTPVerified, "true"))

	v, ok, err := store.Open("abc").Get(ctx, session.KeyResetEmail)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "guest@example.com", v)

	_, ok, _ = store.Open("other").Get(ctx, session.KeyResetEmail)
	assert.False(t, ok, "sessions are isolated by id")

	require.NoError(t, s.Delete(ctx, session.KeyResetEmail, session.KeyOTPVerified))
	_, ok, _ = s.Get(ctx, session.KeyOTPVerified)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	store := session.NewMemoryStore(30 * time.Minute)
	store.SetClock(func() time.Time { return now })

	s := store.Open("abc")
	require.NoError(t, s.Set(ctx, session.KeyResetEmail, "guest@example.com"))

	now = now.Add(29 * time.Minute)
	_, ok, _ := s.Get(ctx, session.KeyResetEmail)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = s.Get(ctx, session.KeyResetEmail)
	assert.False(t, ok)
}

func TestFromContext(t *testing.T) {
	_, err := session.FromContext(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	s := session.NewMemoryStore(time.Minute).Open("x")
	got, err := session.FromContext(session.WithSession(context.Background(), s))
	require.NoError(t, err)
	assert.Same(t, s, got)
}
