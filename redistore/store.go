package redistore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tidegate/authcore"
)

// ErrRedisUnavailable wraps every transport-level Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// expiredGrace keeps a record readable past its logical expiry so the
// engine can observe it and report token-expired instead of
// token-invalid. Redis reaps the key after the grace window.
const expiredGrace = time.Hour

const deleteMatchingScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if string.sub(data, 2, 33) ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
return 1
`

var deleteMatchingLua = redis.NewScript(deleteMatchingScript)

// TokenStore is a Redis-backed [authcore.RefreshTokenStore]. One key per
// account holds the single live record.
type TokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

var _ authcore.RefreshTokenStore = (*TokenStore)(nil)

// NewTokenStore creates a TokenStore on the given client. prefix
// namespaces the keys; empty defaults to "art".
func NewTokenStore(client redis.UniversalClient, prefix string) *TokenStore {
	if prefix == "" {
		prefix = "art"
	}
	return &TokenStore{redis: client, prefix: prefix}
}

func (s *TokenStore) key(accountID string) string {
	return s.prefix + ":" + accountID
}

// Replace stores the record as the account's single live one. The SET
// overwrites any predecessor, so old and new are never visible together.
func (s *TokenStore) Replace(ctx context.Context, record authcore.RefreshTokenRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	ttl := time.Until(record.ExpiresAt) + expiredGrace
	if ttl <= 0 {
		ttl = expiredGrace
	}
	if err := s.redis.Set(ctx, s.key(record.AccountID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// FindByAccount returns the account's record, or (nil, nil) when none
// exists.
func (s *TokenStore) FindByAccount(ctx context.Context, accountID string) (*authcore.RefreshTokenRecord, error) {
	data, err := s.redis.Get(ctx, s.key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return decodeRecord(accountID, data)
}

// DeleteMatching removes the record only when its stored hash equals
// tokenHash. The compare and the delete run in one Lua script, so two
// rotations racing on the same token see exactly one true result.
func (s *TokenStore) DeleteMatching(ctx context.Context, accountID string, tokenHash [32]byte) (bool, error) {
	result, err := deleteMatchingLua.Run(ctx, s.redis, []string{s.key(accountID)}, tokenHash[:]).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return result == 1, nil
}

// DeleteByAccount removes the account's record unconditionally.
func (s *TokenStore) DeleteByAccount(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping reports Redis availability and round-trip latency.
func (s *TokenStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
