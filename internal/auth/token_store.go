package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedKeyPrefix     = "revoked_token:"
	userSessionsPrefix   = "user_sessions:"
	failedLoginKeyPrefix = "auth:failed:"
)

// TokenStore tracks issued token ids per user and revoked token ids in Redis.
// With no Redis client every method is a no-op and nothing is ever revoked.
type TokenStore struct {
	Rdb *redis.Client
}

// Track records an issued token under the user's session set.
func (s *TokenStore) Track(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	if s == nil || s.Rdb == nil {
		return nil
	}
	key := userSessionsPrefix + userID
	pipe := s.Rdb.TxPipeline()
	pipe.SAdd(ctx, key, tokenID)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Revoke blacklists tokenID until it would have expired anyway.
func (s *TokenStore) Revoke(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	if s == nil || s.Rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	pipe := s.Rdb.TxPipeline()
	pipe.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl)
	pipe.SRem(ctx, userSessionsPrefix+userID, tokenID)
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAll blacklists every tracked token of a user, e.g. on deactivation.
func (s *TokenStore) RevokeAll(ctx context.Context, userID string, ttl time.Duration) error {
	if s == nil || s.Rdb == nil {
		return nil
	}
	ids, err := s.Rdb.SMembers(ctx, userSessionsPrefix+userID).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.Revoke(ctx, userID, id, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s == nil || s.Rdb == nil {
		return false, nil
	}
	n, err := s.Rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordFailure counts a failed login for email within window and returns the count.
func (s *TokenStore) RecordFailure(ctx context.Context, email string, window time.Duration) (int64, error) {
	if s == nil || s.Rdb == nil {
		return 0, nil
	}
	key := failedLoginKeyPrefix + email
	n, err := s.Rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("count failed login: %w", err)
	}
	if n == 1 {
		s.Rdb.Expire(ctx, key, window)
	}
	return n, nil
}

func (s *TokenStore) ClearFailures(ctx context.Context, email string) {
	if s == nil || s.Rdb == nil {
		return
	}
	s.Rdb.Del(ctx, failedLoginKeyPrefix+email)
}
