package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"trusted-store/downloads/domain"
)

// Compile-time interface check.
var _ domain.MarkerStore = (*RedisMarkerStore)(nil)

// RedisMarkerStore guarda marcadores de rate limit como chaves com TTL.
// Seen é um EXISTS; Mark é um SET com expiração — o Redis apaga sozinho
// quando a janela fecha, ninguém deleta marcador explicitamente.
type RedisMarkerStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisMarkerOption func(*RedisMarkerStore)

func WithMarkerPrefix(prefix string) RedisMarkerOption {
	return func(s *RedisMarkerStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisMarkerStore(rdb *redis.Client, opts ...RedisMarkerOption) *RedisMarkerStore {
	s := &RedisMarkerStore{
		rdb:    rdb,
		prefix: "downloads:marker",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisMarkerStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisMarkerStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("downloads/infra: marker exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisMarkerStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.key(key), "1", ttl).Err(); err != nil {
		return fmt.Errorf("downloads/infra: marker set: %w", err)
	}
	return nil
}

func (s *RedisMarkerStore) Close() error {
	return s.rdb.Close()
}
