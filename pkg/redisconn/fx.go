package redisconn

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tabpay/tabpay/internal/config"
)

// Open returns a shared redis client, or nil when no address is configured.
// Consumers must treat a nil client as "redis disabled" and degrade quietly.
func Open(cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("redis disabled, no address configured")
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
}

func registerHooks(lc fx.Lifecycle, client *redis.Client, log *zap.Logger) {
	if client == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed, continuing without cache warmup", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}

var Module = fx.Module("redis",
	fx.Provide(Open),
	fx.Invoke(registerHooks),
)
