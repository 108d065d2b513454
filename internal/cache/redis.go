package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/zfogg/hushmap/internal/logger"
	"go.uber.org/zap"
)

// RedisClient wraps the redis.Client with centralized connection pooling
type RedisClient struct {
	client *redis.Client
}

// unlockScript deletes the lock only if it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient creates a Redis client and checks the connection
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		_ = client.Close()
		return nil, err
	}

	logger.Log.Info("Redis client connected", zap.String("address", addr))
	return &RedisClient{client: client}, nil
}

// NewFromClient wraps an existing go-redis client
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// IncrWindow increments a fixed-window counter, starting the window on the
// first hit, and returns the count so far
func (rc *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// TryLock takes a lock that expires after ttl. The returned token is needed to unlock.
func (rc *RedisClient) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := rc.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Unlock releases a lock taken with TryLock. A lock that already expired or
// was taken over is left alone.
func (rc *RedisClient) Unlock(ctx context.Context, key, token string) error {
	err := unlockScript.Run(ctx, rc.client, []string{key}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
