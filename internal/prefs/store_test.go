package prefs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client)
}

func TestGetDefaults(t *testing.T) {
	store := newTestStore(t)

	p, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, p.CookieBannerAck)
	require.True(t, p.ClockFormat24h)
	require.Equal(t, "Local", p.ClockTimezone)
}

func TestSetGetRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := Preferences{
		CookieBannerAck: true,
		ClockFormat24h:  false,
		ClockTimezone:   "Europe/Berlin",
	}
	require.NoError(t, store.Set(ctx, "user-1", want))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, want, got)

	// Another user still sees defaults.
	other, err := store.Get(ctx, "user-2")
	require.NoError(t, err)
	require.True(t, other.ClockFormat24h)
}
