package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// DedupChecker provides checkout idempotency backed by Redis.
// Key format: checkout:<session_id>:<idempotency_key>
type DedupChecker struct {
	client *redis.Client
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client *redis.Client) *DedupChecker {
	return &DedupChecker{client: client}
}

// IsDuplicate reports whether a checkout with this key was already
// processed for the session.
func (d *DedupChecker) IsDuplicate(ctx context.Context, sessionID, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(sessionID, key)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that a checkout with this key has been processed
// (expires after dedupTTL).
func (d *DedupChecker) Mark(ctx context.Context, sessionID, key string) error {
	return d.client.Set(ctx, d.key(sessionID, key), "1", dedupTTL).Err()
}

func (d *DedupChecker) key(sessionID, key string) string {
	return fmt.Sprintf("checkout:%s:%s", sessionID, key)
}
