package cache

import (
	"fmt"

	"go.uber.org/zap"
)

// TokenStoreFactory creates token stores based on configuration
type TokenStoreFactory struct {
	redisConfig           RedisConfig
	enabled               bool
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TokenStoreFactoryOption is a functional option for configuring the factory
type TokenStoreFactoryOption func(*TokenStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// an in-memory store. Default is true.
func WithInMemoryFallback(allow bool) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTokenStoreFactory creates a factory; enabled selects Redis
func NewTokenStoreFactory(cfg RedisConfig, enabled bool, opts ...TokenStoreFactoryOption) *TokenStoreFactory {
	f := &TokenStoreFactory{
		redisConfig:           cfg,
		enabled:               enabled,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when enabled and reachable, otherwise an
// in-memory store
func (f *TokenStoreFactory) CreateStore() (Store, error) {
	if !f.enabled {
		return NewInMemoryTokenStore(f.redisConfig.TokenTTL), nil
	}

	store, err := NewRedisTokenStore(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis token store",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for token sharing but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory token store. "+
		"Concurrent runs will request their own tokens.",
		zap.Error(err),
	)
	return NewInMemoryTokenStore(f.redisConfig.TokenTTL), nil
}
