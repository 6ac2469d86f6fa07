package store

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/rushteam/tagkit/core"
)

// GlobalScope 是非个性化（物品检索）排名的作用域。
const GlobalScope = "global"

// DefaultPrefix 是排名 key 的默认前缀。
const DefaultPrefix = "tagkit:rank"

// UserScope 返回用户个性化排名的作用域。
func UserScope(user int) string {
	return "user:" + strconv.Itoa(user)
}

// RankingStore 把 (id, value) 排名保存为有序集合：key = Prefix:scope，member = id，score = value。
type RankingStore struct {
	KV     core.KeyValueStore
	Prefix string
}

// NewRankingStore 创建排名存储；prefix 为空时使用 DefaultPrefix。
func NewRankingStore(kv core.KeyValueStore, prefix string) *RankingStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RankingStore{KV: kv, Prefix: prefix}
}

func (s *RankingStore) key(scope string) string {
	return s.Prefix + ":" + scope
}

// Save 覆盖 scope 下的排名。NaN 值跳过；±Inf 原样写入。
func (s *RankingStore) Save(ctx context.Context, scope string, ids []int, values []float64) error {
	if len(ids) != len(values) {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			fmt.Sprintf("store: %d ids but %d values", len(ids), len(values)))
	}
	key := s.key(scope)
	if err := s.KV.Delete(ctx, key); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	for i, id := range ids {
		if math.IsNaN(values[i]) {
			continue
		}
		if err := s.KV.ZAdd(ctx, key, values[i], strconv.Itoa(id)); err != nil {
			return fmt.Errorf("zadd %s: %w", key, err)
		}
	}
	return nil
}

// Top 返回 scope 下价值最高的 n 个 id（降序）；n <= 0 返回全部。
func (s *RankingStore) Top(ctx context.Context, scope string, n int) ([]int, error) {
	stop := int64(n) - 1
	if n <= 0 {
		stop = -1
	}
	key := s.key(scope)
	members, err := s.KV.ZRange(ctx, key, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("zrange %s: %w", key, err)
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("member %q of %s is not an id: %w", m, key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Value 返回 scope 下某个 id 的价值；不存在时返回 ErrStoreNotFound。
func (s *RankingStore) Value(ctx context.Context, scope string, id int) (float64, error) {
	return s.KV.ZScore(ctx, s.key(scope), strconv.Itoa(id))
}
