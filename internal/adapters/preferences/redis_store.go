package preferences

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/Rakhazzan/SINTESIS/internal/infrastructure/clients/redis"
)

const keyPrefix = "preferences:"

// RedisStore keeps each user's preferences in one Redis hash
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore creates a Redis-backed preference store
func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get retrieves a preference
func (s *RedisStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	value, err := s.client.Client().HGet(ctx, keyPrefix+userID, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference: %w", err)
	}
	return value, true, nil
}

// Set stores a preference
func (s *RedisStore) Set(ctx context.Context, userID, key, value string) error {
	if err := s.client.Client().HSet(ctx, keyPrefix+userID, key, value).Err(); err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}
	return nil
}

// Delete removes a preference
func (s *RedisStore) Delete(ctx context.Context, userID, key string) error {
	if err := s.client.Client().HDel(ctx, keyPrefix+userID, key).Err(); err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return nil
}
