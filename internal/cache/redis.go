package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier shares dialogue entries between processes through Redis.
// Keys are namespaced as "{prefix}:dialogue:{key}".
type RedisTier struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisTier creates a tier on client. A zero ttl stores entries without expiry.
func NewRedisTier(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisTier {
	if prefix == "" {
		prefix = "npc"
	}
	return &RedisTier{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisTierFromURL parses a redis:// URL and returns a tier for it.
func NewRedisTierFromURL(url, prefix string, ttl time.Duration) (*RedisTier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisTier(redis.NewClient(opts), prefix, ttl), nil
}

func (r *RedisTier) key(k string) string {
	return fmt.Sprintf("%s:dialogue:%s", r.prefix, k)
}

// Get implements SharedTier.
func (r *RedisTier) Get(ctx context.Context, key string) (DialogueEntry, bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DialogueEntry{}, false, nil
	}
	if err != nil {
		return DialogueEntry{}, false, fmt.Errorf("failed to read dialogue entry: %w", err)
	}

	var entry DialogueEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is a miss; drop it so it is recomputed.
		_ = r.client.Del(ctx, r.key(key)).Err()
		return DialogueEntry{}, false, nil
	}
	return entry, true, nil
}

// Set implements SharedTier.
func (r *RedisTier) Set(ctx context.Context, key string, entry DialogueEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode dialogue entry: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dialogue entry: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisTier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisTier) Close() error {
	return r.client.Close()
}

var _ SharedTier = (*RedisTier)(nil)
