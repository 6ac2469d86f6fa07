package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/tagkit/core"
)

// MemoryStore 是内存实现的 KeyValueStore，用于测试/开发/单机实验。
// 进程重启后数据丢失。
type MemoryStore struct {
	mu    sync.RWMutex
	zsets map[string]map[string]float64 // zset key -> member -> score
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{zsets: make(map[string]map[string]float64)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

// ZRange 与 Redis ZREVRANGE 一致：分数降序，分数相同按成员字典序降序。
func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset, ok := m.zsets[key]
	if !ok || len(zset) == 0 {
		return nil, nil
	}

	type pair struct {
		member string
		score  float64
	}
	pairs := make([]pair, 0, len(zset))
	for m, s := range zset {
		pairs = append(pairs, pair{member: m, score: s})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].member > pairs[j].member
	})

	// 处理范围
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(pairs)) {
		stop = int64(len(pairs)) - 1
	}
	if start > stop {
		return nil, nil
	}

	result := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		result = append(result, pairs[i].member)
	}
	return result, nil
}

func (m *MemoryStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.zsets[key][member]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	return score, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.zsets, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ core.KeyValueStore = (*MemoryStore)(nil)
