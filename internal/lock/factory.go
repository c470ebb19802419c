package lock

import (
	"context"
	"fmt"
	"time"

	"buildledger/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New builds the Locker selected by cfg.Backend. The redis backend pings the
// server first and falls back to an in-process lock when it is unreachable
// outside production.
func New(cfg config.LockConfig, redisCfg config.RedisConfig, production bool, logger *zap.Logger) (Locker, error) {
	if cfg.Backend != "redis" {
		logger.Info("using in-memory lock")
		return NewMemoryLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if production {
			return nil, fmt.Errorf("redis required for locking but unavailable: %w", err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory lock. "+
			"Payments are only serialized within this process.", zap.Error(err))
		return NewMemoryLocker(), nil
	}

	logger.Info("using Redis lock", zap.String("addr", redisCfg.Addr()))
	return NewRedisLocker(client, cfg.TTL, cfg.RetryDelay, logger), nil
}
