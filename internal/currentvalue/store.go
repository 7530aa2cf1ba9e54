package currentvalue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"homehub/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "device:current:"
	ttl       = time.Hour
)

// Store holds the latest CurrentValue per device.
type Store interface {
	Get(ctx context.Context, deviceID string) (models.CurrentValue, bool, error)
	Set(ctx context.Context, deviceID string, value models.CurrentValue) error
}

// RedisStore caches CurrentValues as JSON blobs with a TTL, the same way the
// hub caches device state.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get fetches a device's latest value. The second return is false when the
// key is absent or expired.
func (s *RedisStore) Get(ctx context.Context, deviceID string) (models.CurrentValue, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+deviceID).Result()
	if err == redis.Nil {
		return models.CurrentValue{}, false, nil
	}
	if err != nil {
		return models.CurrentValue{}, false, fmt.Errorf("get current value %s: %w", deviceID, err)
	}
	var value models.CurrentValue
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return models.CurrentValue{}, false, fmt.Errorf("decode current value %s: %w", deviceID, err)
	}
	return value, true, nil
}

// Set replaces a device's value wholesale.
func (s *RedisStore) Set(ctx context.Context, deviceID string, value models.CurrentValue) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+deviceID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set current value %s: %w", deviceID, err)
	}
	return nil
}
