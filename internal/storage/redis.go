package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatch = 200

// Redis - плоское KV-хранилище. Ключи документа: "<namespace>:<key>".
type Redis struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

var _ Adapter = (*Redis)(nil)

func NewRedis(client *redis.Client, namespace string, logger *zap.Logger) *Redis {
	return &Redis{client: client, namespace: namespace, logger: logger.Named("RedisStorage")}
}

func (s *Redis) redisKey(key string) string {
	return s.namespace + ":" + key
}

func (s *Redis) Save(ctx context.Context, key string, value any) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(key), b, 0).Err(); err != nil {
		s.logger.Error("Failed to save document in redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, key string, dst any) error {
	b, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound(key)
		}
		return fmt.Errorf("failed to load document %s: %w", key, err)
	}
	return decode(key, b, dst)
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

func (s *Redis) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	ns := s.namespace + ":"
	var out []string
	err := s.scan(ctx, globEscape(ns+prefix)+"*", func(keys []string) error {
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, ns))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents %q: %w", prefix, err)
	}
	// SCAN может вернуть ключ повторно
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (s *Redis) Clear(ctx context.Context) error {
	removed := 0
	err := s.scan(ctx, globEscape(s.namespace+":")+"*", func(keys []string) error {
		removed += len(keys)
		return s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	s.logger.Info("Documents cleared", zap.Int("keys", removed))
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}

// globEscape экранирует спецсимволы шаблона SCAN MATCH.
func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
