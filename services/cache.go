package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m4cd4r4/SwanFlow/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingAttempts = 10

// CacheService is a JSON cache over Redis. A service without a client is a
// valid no-op cache: every lookup misses and every write succeeds.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*CacheService, error) {
	if !cfg.Enabled {
		return &CacheService{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Retry while a sidecar or the Redis pod is still starting.
	var lastErr error
	for i := 0; i < pingAttempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		logger.Warn("redis ping failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", pingAttempts),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			client.Close()
			return &CacheService{}, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	client.Close()
	return &CacheService{}, fmt.Errorf("redis ping failed after %d attempts: %w", pingAttempts, lastErr)
}

func NewCacheServiceWithClient(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

func (s *CacheService) Client() *redis.Client {
	return s.client
}

func (s *CacheService) Available() bool {
	return s.client != nil
}

// Get decodes key into dest and reports whether it was present.
func (s *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message any) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *CacheService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
