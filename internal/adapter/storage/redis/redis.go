package redis

import (
	"context"
	"fmt"

	"atm-engine/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}

// HealthCheck implements ports.HealthChecker for Redis.
type HealthCheck struct {
	client goredis.UniversalClient
}

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client goredis.UniversalClient) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping checks Redis connectivity.
func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "redis"
}
