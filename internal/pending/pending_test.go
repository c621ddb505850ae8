package pending

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TakeConsumes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Confirmation{Token: "t1", DonationID: 3, ExpiresAt: time.Now().Add(time.Minute)}))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.DonationID)

	got, err = s.Take(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.DonationID)

	_, err = s.Take(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Confirmation{Token: "old", DonationID: 1, ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, s.Put(ctx, Confirmation{Token: "new", DonationID: 2, ExpiresAt: now.Add(time.Hour)}))

	now = now.Add(2 * time.Minute)

	_, err := s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	_, err = s.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestMemoryStore_Drop(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, Confirmation{Token: "t", ExpiresAt: time.Now().Add(time.Minute)}))

	dropped, err := s.Drop(ctx, "t")
	require.NoError(t, err)
	assert.True(t, dropped)

	dropped, err = s.Drop(ctx, "t")
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TINBOX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TINBOX_TEST_REDIS_ADDR to run redis tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client)
	ctx := context.Background()
	token := uuid.NewString()

	require.NoError(t, s.Put(ctx, Confirmation{Token: token, DonationID: 9, ExpiresAt: time.Now().Add(time.Minute)}))

	got, err := s.Take(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.DonationID)

	_, err = s.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}
