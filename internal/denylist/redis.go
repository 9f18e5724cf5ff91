package denylist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "auth:denylist"

// RedisDenylist records invalidated token ids until the tokens would have
// expired anyway, so every API instance sees the same revocations.
type RedisDenylist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisDenylist(client *redis.Client, prefix string) *RedisDenylist {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &RedisDenylist{client: client, prefix: prefix, now: time.Now}
}

func (d *RedisDenylist) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", d.prefix, tokenID)
}

// Add denylists tokenID until expiresAt and reports whether this call was the
// one that recorded it. Tokens that are already expired are skipped, and
// re-adding keeps the first invalidation time.
func (d *RedisDenylist) Add(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if tokenID == "" {
		return false, fmt.Errorf("denylist: empty token id")
	}

	now := d.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return false, nil
	}
	// Redis expiries have second granularity for SET EX.
	ttl = ttl.Truncate(time.Second) + time.Second

	added, err := d.client.SetNX(ctx, d.key(tokenID), now.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to denylist token: %w", err)
	}

	return added, nil
}

func (d *RedisDenylist) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check denylist: %w", err)
	}

	return n > 0, nil
}

func (d *RedisDenylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
