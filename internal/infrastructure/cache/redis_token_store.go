package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTokenTTL is slightly below the lifetime of a Vendit token
const DefaultTokenTTL = 50 * time.Minute

const defaultKeyPrefix = "vendit:token:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TokenTTL time.Duration
}

// RedisTokenStore shares OAuth tokens through Redis so that concurrent runs
// for the same account reuse one token
type RedisTokenStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisTokenStore connects to Redis and creates a token store
func NewRedisTokenStore(cfg RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTokenStoreWithClient(client, "", cfg.TokenTTL), nil
}

// NewRedisTokenStoreWithClient creates a store on an existing client
func NewRedisTokenStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &RedisTokenStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Get returns the token stored under key
func (s *RedisTokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read token: %w", err)
	}
	return token, true, nil
}

// Set stores token under key for the configured TTL
func (s *RedisTokenStore) Set(ctx context.Context, key, token string) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Delete removes the token stored under key
func (s *RedisTokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// TTL returns the lifetime of stored tokens
func (s *RedisTokenStore) TTL() time.Duration {
	return s.ttl
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisTokenStore)(nil)
