package config

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/store"
)

// StoreBuilder 根据配置构建 KeyValueStore。
type StoreBuilder func(ctx context.Context, cfg StoreConfig) (core.KeyValueStore, error)

var (
	storeBuilders   = map[string]StoreBuilder{}
	storeBuildersMu sync.RWMutex
)

func init() {
	RegisterStore("memory", func(context.Context, StoreConfig) (core.KeyValueStore, error) {
		return store.NewMemoryStore(), nil
	})
	RegisterStore("redis", func(ctx context.Context, cfg StoreConfig) (core.KeyValueStore, error) {
		return store.NewRedisStore(ctx, cfg.Addr, cfg.DB)
	})
}

// RegisterStore 注册一种存储后端，后注册的同名后端覆盖先前的。
func RegisterStore(name string, builder StoreBuilder) {
	if name == "" || builder == nil {
		return
	}
	storeBuildersMu.Lock()
	defer storeBuildersMu.Unlock()
	storeBuilders[name] = builder
}

// SupportedStores 返回已注册的后端名称（排序），用于错误提示与校验。
func SupportedStores() []string {
	storeBuildersMu.RLock()
	defer storeBuildersMu.RUnlock()
	names := make([]string, 0, len(storeBuilders))
	for n := range storeBuilders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func storeRegistered(name string) bool {
	_, ok := lookupStore(name)
	return ok
}

func lookupStore(name string) (StoreBuilder, bool) {
	storeBuildersMu.RLock()
	defer storeBuildersMu.RUnlock()
	b, ok := storeBuilders[name]
	return b, ok
}
