package redisotp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthplanner/internal/core"
	"wealthplanner/internal/storage"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestSaveOTP(t *testing.T) {
	store, mr := setupStore(t)
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	err := store.SaveOTP(context.Background(), core.OTP{Phone: "5551234567", Code: "123456", CreatedAt: created})
	require.NoError(t, err)

	val, err := mr.Get("wealthplanner:otp:5551234567")
	require.NoError(t, err)
	var rec record
	require.NoError(t, json.Unmarshal([]byte(val), &rec))
	assert.Equal(t, "123456", rec.Code)
	assert.True(t, rec.CreatedAt.Equal(created))
	assert.Equal(t, retention, mr.TTL("wealthplanner:otp:5551234567"))
}

func TestLatestOTP(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	_, err := store.LatestOTP(ctx, "5551234567")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SaveOTP(ctx, core.OTP{Phone: "5551234567", Code: "111111", CreatedAt: time.Now()}))
	require.NoError(t, store.SaveOTP(ctx, core.OTP{Phone: "5551234567", Code: "222222", CreatedAt: time.Now()}))

	o, err := store.LatestOTP(ctx, "5551234567")
	require.NoError(t, err)
	assert.Equal(t, "222222", o.Code)
	assert.Equal(t, "5551234567", o.Phone)

	mr.FastForward(retention + time.Second)
	_, err = store.LatestOTP(ctx, "5551234567")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarkOTPVerified(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveOTP(ctx, core.OTP{Phone: "5551234567", Code: "123456", CreatedAt: time.Now()}))

	assert.ErrorIs(t, store.MarkOTPVerified(ctx, "5551234567", "654321"), storage.ErrNotFound)
	require.NoError(t, store.MarkOTPVerified(ctx, "5551234567", "123456"))
	assert.ErrorIs(t, store.MarkOTPVerified(ctx, "5551234567", "123456"), storage.ErrNotFound)

	o, err := store.LatestOTP(ctx, "5551234567")
	require.NoError(t, err)
	assert.True(t, o.Verified)
	assert.True(t, mr.TTL("wealthplanner:otp:5551234567") > 0)
}

func TestRedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	err = store.SaveOTP(context.Background(), core.OTP{Phone: "5551234567", Code: "123456"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store OTP in Redis")
}
