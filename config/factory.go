package config

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/estimator"
	"github.com/rushteam/tagkit/freq"
	"github.com/rushteam/tagkit/pkg/dsl"
	"github.com/rushteam/tagkit/store"
)

// NewEstimator 读取标注流并按配置构建平滑估计器。
// Parallelism > 1 时估计器会被并发使用，缓存自动关闭。
func NewEstimator(ctx context.Context, cfg *Config, stream core.AnnotationStream, logger *log.Logger) (*estimator.Smoothed, error) {
	if logger == nil {
		logger = log.Default()
	}
	cache := cfg.Estimator.Cache
	if cache && cfg.Experiment.Parallelism > 1 {
		logger.Debug("disabling estimator cache for parallel run", "parallelism", cfg.Experiment.Parallelism)
		cache = false
	}
	est, err := estimator.Build(ctx, stream,
		estimator.WithSmoothing(cfg.Estimator.Smoothing),
		estimator.WithLambda(cfg.Estimator.Lambda),
		estimator.WithCache(cache),
		estimator.WithBuilderOptions(
			freq.WithProfileCap(cfg.Estimator.Profile),
			freq.WithLogger(logger),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build estimator: %w", err)
	}
	return est, nil
}

// NewStore 按配置的后端构建排名存储。
func NewStore(ctx context.Context, cfg *Config) (*store.RankingStore, error) {
	builder, ok := lookupStore(cfg.Store.Backend)
	if !ok {
		return nil, core.Errorf(core.ErrStoreNotSupported, "unsupported backend %q (supported: %v)", cfg.Store.Backend, SupportedStores())
	}
	kv, err := builder(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return store.NewRankingStore(kv, cfg.Store.Prefix), nil
}

// Gamma 是候选物品与候选标签。nil 表示全部（物品：整个取值域；标签：所有 P(t) > 0 的标签）。
type Gamma struct {
	Items []int
	Tags  []int
}

// NewGamma 用配置中的 CEL 表达式在索引上选出候选集合。
func NewGamma(cfg *Config, idx *freq.Index) (Gamma, error) {
	var g Gamma
	if expr := cfg.Gamma.Items; expr != "" {
		f, err := dsl.NewItemFilter(expr)
		if err != nil {
			return Gamma{}, fmt.Errorf("gamma.items: %w", err)
		}
		if g.Items, err = f.SelectItems(idx); err != nil {
			return Gamma{}, fmt.Errorf("gamma.items: %w", err)
		}
		if len(g.Items) == 0 {
			return Gamma{}, core.NewDomainError(core.ModuleValue, core.ErrorCodeInvalidInput,
				fmt.Sprintf("value: item filter %q selects no items", expr))
		}
	}
	if expr := cfg.Gamma.Tags; expr != "" {
		f, err := dsl.NewTagFilter(expr)
		if err != nil {
			return Gamma{}, fmt.Errorf("gamma.tags: %w", err)
		}
		if g.Tags, err = f.SelectTags(idx); err != nil {
			return Gamma{}, fmt.Errorf("gamma.tags: %w", err)
		}
	}
	return g, nil
}
