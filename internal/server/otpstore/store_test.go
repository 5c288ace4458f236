package otpstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const email = "2023-bs-cs-049@tuf.edu.pk"

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func newOTP(code string) *models.OTP {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &models.OTP{Email: email, Code: code, CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute)}
}

func TestSaveAndGet(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newOTP("123456"), 10*time.Minute))

	got, err := s.Get(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, newOTP("123456").ExpiresAt, got.ExpiresAt)

	assert.Equal(t, 10*time.Minute, mr.TTL(emailKey(email)))
}

func TestSave_SameCodeForDifferentEmails(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	other := newOTP("111111")
	other.Email = "2023-bs-cs-050@tuf.edu.pk"
	require.NoError(t, s.Save(ctx, newOTP("111111"), time.Minute))
	require.NoError(t, s.Save(ctx, other, time.Minute))

	ok, err := s.Consume(ctx, other.Email, "111111")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Get(ctx, email)
	require.NoError(t, err, "redeeming one email leaves the other pending")
}

func TestSave_ReplacesPreviousCode(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newOTP("111111"), time.Minute))
	require.NoError(t, s.Save(ctx, newOTP("222222"), time.Minute))

	ok, err := s.Consume(ctx, email, "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Consume(ctx, email, "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsume_OnlyOnce(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newOTP("654321"), time.Minute))

	ok, err := s.Consume(ctx, email, "000000")
	require.NoError(t, err)
	assert.False(t, ok, "wrong code")

	ok, err = s.Consume(ctx, email, "654321")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(emailKey(email)))

	ok, err = s.Consume(ctx, email, "654321")
	require.NoError(t, err)
	assert.False(t, ok, "second redemption")
}

func TestConsume_AttemptLimitDiscardsCode(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newOTP("654321"), time.Minute))

	for i := 0; i < common.MaxOTPAttempts-1; i++ {
		ok, err := s.Consume(ctx, email, "000000")
		require.NoError(t, err)
		require.False(t, ok)
	}
	assert.Equal(t, "4", mr.HGet(emailKey(email), "attempts"))

	ok, err := s.Consume(ctx, email, "999999")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(emailKey(email)), "limit reached")

	ok, err = s.Consume(ctx, email, "654321")
	require.NoError(t, err)
	assert.False(t, ok, "the right code no longer works")
}

func TestSave_ResetsAttempts(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newOTP("111111"), time.Minute))
	_, err := s.Consume(ctx, email, "000000")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, newOTP("222222"), time.Minute))

	assert.Equal(t, "0", mr.HGet(emailKey(email), "attempts"))
}

func TestConsume_Expired(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newOTP("654321"), 10*time.Minute))
	mr.FastForward(10*time.Minute + time.Second)

	ok, err := s.Consume(ctx, email, "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, email)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDiscard(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, newOTP("888888"), time.Minute))
	require.NoError(t, s.Discard(ctx, email))

	assert.False(t, mr.Exists(emailKey(email)))

	_, err := s.Get(ctx, email)
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Discard(ctx, email), "discarding nothing is fine")
}

func TestRedisErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewRedisStore(rdb)
	ctx := context.Background()

	require.Error(t, s.Save(ctx, newOTP("123456"), time.Minute))
	_, err := s.Consume(ctx, email, "123456")
	require.Error(t, err)
	_, err = s.Get(ctx, email)
	require.Error(t, err)
	require.Error(t, s.Discard(ctx, email))
}
