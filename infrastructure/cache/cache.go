package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"social-publisher/infrastructure/logger"
)

// NewCache connects a Redis client. A nil client is returned on failure so
// callers can run without caching.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without cache")
		return nil, err
	}
	return client, nil
}
