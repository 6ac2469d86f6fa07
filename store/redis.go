package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/tagkit/core"
)

// RedisStore 是 Redis 实现的 KeyValueStore，排名以有序集合保存。
// 多个实验进程共享基线排名时使用。
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *RedisStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if stop < 0 {
		stop = -1
	}
	return r.client.ZRevRange(ctx, key, start, stop).Result()
}

func (r *RedisStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	score, err := r.client.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, core.ErrStoreNotFound
	}
	return score, err
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ core.KeyValueStore = (*RedisStore)(nil)
