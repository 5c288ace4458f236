// Package otpstore keeps pending one-time passcodes in Redis. Records expire
// through native key TTLs, and consumption is a single server-side script so
// a code can be redeemed at most once and guessing is capped per email.
package otpstore

import (
	"context"
	"fmt"
	"time"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const emailKeyPrefix = "otp:email:"

// Store is the OTP persistence contract consumed by the OTP service.
type Store interface {
	// Save records otp for its email, replacing any previous pending code
	// and resetting the failed attempt count.
	Save(ctx context.Context, otp *models.OTP, ttl time.Duration) error
	Get(ctx context.Context, email string) (*models.OTP, error)
	// Consume deletes the record of email when its code equals code and
	// reports whether it did. A mismatch counts as a failed attempt; the
	// record is dropped once the attempt limit is reached.
	Consume(ctx context.Context, email, code string) (bool, error)
	Discard(ctx context.Context, email string) error
}

// consumeScript compares and deletes in one step.
// KEYS[1] email hash; ARGV[1] submitted code, ARGV[2] attempt limit.
var consumeScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
	return 0
end
if code == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return 1
end
local n = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if n >= tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisStore struct {
	rdb         redis.UniversalClient
	maxAttempts int
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, maxAttempts: common.MaxOTPAttempts}
}

func emailKey(email string) string { return emailKeyPrefix + email }

func (s *RedisStore) Save(ctx context.Context, otp *models.OTP, ttl time.Duration) error {
	key := emailKey(otp.Email)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			"code", otp.Code,
			"attempts", 0,
			"created_at", otp.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expires_at", otp.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (*models.OTP, error) {
	fields, err := s.rdb.HGetAll(ctx, emailKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	otp := &models.OTP{Email: email, Code: fields["code"]}
	if otp.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if otp.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return otp, nil
}

func (s *RedisStore) Consume(ctx context.Context, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.rdb, []string{emailKey(email)}, code, s.maxAttempts).Int()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Discard(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
