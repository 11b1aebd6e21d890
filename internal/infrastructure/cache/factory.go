package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/collections/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Lock is a named mutex with an expiry
type Lock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Factory builds the Redis-backed components from configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(context.Context, config.RedisConfig) (*redis.Client, error)
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// process-local components. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect:               NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Components are the Redis-dependent pieces the server wires. Client is nil
// when running without Redis.
type Components struct {
	Client *redis.Client
	Lock   Lock
}

// Close releases the Redis connection, if any
func (c Components) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Create connects to Redis when enabled and falls back to in-memory
// components when it is disabled, or unreachable and fallback is allowed
func (f *Factory) Create(ctx context.Context) (Components, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory job lock")
		return Components{Lock: NewInMemoryLock()}, nil
	}

	client, err := f.connect(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis job lock", zap.String("addr", f.redisConfig.Addr()))
		return Components{Client: client, Lock: NewRedisLock(client, "")}, nil
	}

	if !f.allowInMemoryFallback {
		return Components{}, fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory job lock. "+
		"Replicas may run the nightly sweep concurrently.",
		zap.Error(err),
	)
	return Components{Lock: NewInMemoryLock()}, nil
}
