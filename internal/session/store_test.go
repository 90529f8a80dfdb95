package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"stagedesk/internal/models"
	"stagedesk/internal/security"
)

const testSealKey = "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sealer, err := security.NewSealer(testSealKey)
	require.NoError(t, err)
	return NewStore(client, sealer, time.Hour), mr
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess := models.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
		UserID:       "user-1",
	}

	sid, err := store.Save(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	loaded, err := store.Load(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, sess.AccessToken, loaded.AccessToken)
	require.Equal(t, sess.RefreshToken, loaded.RefreshToken)
	require.Equal(t, sess.UserID, loaded.UserID)
	require.True(t, sess.ExpiresAt.Equal(loaded.ExpiresAt))

	// The raw refresh token never hits the store.
	sealed := mr.HGet(key(sid), "refresh_sealed")
	require.NotEmpty(t, sealed)
	require.False(t, strings.Contains(sealed, "refresh-1"))

	ttl := mr.TTL(key(sid))
	require.Equal(t, time.Hour, ttl)
}

func TestStoreLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNoStoredSession)
}

func TestStoreUpdateKeepsCookieID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sid, err := store.Save(ctx, models.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Minute),
		UserID:       "user-1",
	})
	require.NoError(t, err)

	err = store.Update(ctx, sid, models.Session{
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       "user-1",
	})
	require.NoError(t, err)

	loaded, err := store.Load(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, "access-2", loaded.AccessToken)
	require.Equal(t, "refresh-2", loaded.RefreshToken)
}

func TestStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sid, err := store.Save(ctx, models.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Minute),
		UserID:       "user-1",
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sid))
	_, err = store.Load(ctx, sid)
	require.ErrorIs(t, err, ErrNoStoredSession)
}
