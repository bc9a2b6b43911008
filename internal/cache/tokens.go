package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist remembers revoked token ids until the tokens expire.
type TokenDenylist struct {
	redis *redis.Client
}

func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	if client == nil {
		panic("cache.NewTokenDenylist: redis client is nil")
	}
	return &TokenDenylist{redis: client}
}

// Revoke is a no-op for tokens that have already expired.
func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.redis.Set(ctx, revokedKey(tokenID), 1, ttl).Err()
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.redis.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func revokedKey(tokenID string) string {
	return "revoked:" + tokenID
}
