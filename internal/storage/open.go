package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyreel/internal/config"
)

const connectTimeout = 10 * time.Second

// Open создает хранилище по cfg.Driver. Для "database" сначала пробуется Postgres,
// при недоступности используется Redis.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Adapter, error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("Using in-memory document storage")
		return NewMemory(), nil
	case "file":
		logger.Info("Using file document storage", zap.String("root", cfg.FileRoot))
		return NewFile(cfg.FileRoot, logger)
	case "redis":
		return openRedis(ctx, cfg, logger)
	case "database":
		if cfg.PostgresDSN != "" {
			pctx, cancel := context.WithTimeout(ctx, connectTimeout)
			pg, err := NewPostgres(pctx, cfg.PostgresDSN, logger)
			cancel()
			if err == nil {
				logger.Info("Using postgres document storage")
				return pg, nil
			}
			logger.Warn("Postgres unavailable, falling back to redis", zap.Error(err))
		}
		return openRedis(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openRedis(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Adapter, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("Using redis document storage", zap.String("addr", cfg.RedisAddr), zap.String("namespace", cfg.RedisNamespace))
	return NewRedis(client, cfg.RedisNamespace, logger), nil
}
