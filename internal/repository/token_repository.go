package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "auth:revoked:"

// TokenRepository keeps the list of signed-out token ids in Redis. Entries
// expire together with the token they revoke.
type TokenRepository struct {
	client redis.Cmdable
}

// NewTokenRepository constructs a TokenRepository. With a nil client tokens
// cannot be revoked and every token is reported as live.
func NewTokenRepository(client redis.Cmdable) *TokenRepository {
	return &TokenRepository{client: client}
}

// Revoke records tokenID as signed out for ttl.
func (r *TokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if r.client == nil || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been signed out.
func (r *TokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
