package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const denylistPrefix = "denylist:"

// Denylist stores revoked tokens in Redis until their natural expiry.
// A nil client disables revocation checks (used by tests and degraded
// deployments); logout then only relies on client-side token disposal.
type Denylist struct {
	client *redis.Client
}

func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Add marks a token revoked for the remaining duration of its validity.
func (d *Denylist) Add(ctx context.Context, tokenString string, ttl time.Duration) error {
	if d.client == nil {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistPrefix+tokenString, 1, ttl).Err()
}

// Contains reports whether a token has been revoked.
func (d *Denylist) Contains(ctx context.Context, tokenString string) (bool, error) {
	if d.client == nil {
		return false, nil
	}
	_, err := d.client.Get(ctx, denylistPrefix+tokenString).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
