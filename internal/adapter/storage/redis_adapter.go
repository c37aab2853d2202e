package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const quantityKeyPrefix = "itemqty:"

// RedisAdapter is a read-through cache for current-quantity snapshots. The
// database stays authoritative; the mutation path invalidates the key after
// every committed movement.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) GetQuantity(ctx context.Context, itemID string) (float64, bool, error) {
	val, err := r.client.Get(ctx, quantityKeyPrefix+itemID).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

func (r *RedisAdapter) SetQuantity(ctx context.Context, itemID string, quantity float64) error {
	return r.client.Set(ctx, quantityKeyPrefix+itemID, quantity, r.ttl).Err()
}

func (r *RedisAdapter) InvalidateQuantity(ctx context.Context, itemID string) error {
	return r.client.Del(ctx, quantityKeyPrefix+itemID).Err()
}
