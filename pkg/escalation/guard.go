package escalation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard makes sure a question is escalated once per window across instances.
type Guard interface {
	// Claim stores value under key unless the key is held. When it is held,
	// claimed is false and existing is the holder's value.
	Claim(ctx context.Context, key, value string, ttl time.Duration) (existing string, claimed bool, err error)
	Release(ctx context.Context, key string) error
}

type RedisGuard struct {
	rdb *redis.Client
}

func NewRedisGuard(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb}
}

func (g *RedisGuard) Claim(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	ok, err := g.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	existing, err := g.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return "", true, nil
	}
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, key).Err()
}
