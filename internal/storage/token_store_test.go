package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore(t *testing.T) {
	mr, kv := newRedisKV(t)
	store := NewTokenStore(kv)
	ctx := context.Background()

	_, ok := store.Load(ctx)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, " eyJhbGciOi.token "))
	tok, ok := store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "eyJhbGciOi.token", tok)

	require.NoError(t, store.Save(ctx, "   "))
	assert.False(t, mr.Exists(TokenKey))

	require.NoError(t, store.Clear(ctx))
}

func TestTokenStore_WithoutDurableStorage(t *testing.T) {
	store := NewTokenStore(nil)
	ctx := context.Background()

	assert.NoError(t, store.Save(ctx, "abc"))
	_, ok := store.Load(ctx)
	assert.False(t, ok)
	assert.NoError(t, store.Clear(ctx))
}
