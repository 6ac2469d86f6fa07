// Package experiment 批量计算用户的个性化标签排名，并与全局（物品检索）排名比较。
package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/pkg/conv"
	"github.com/rushteam/tagkit/rankdist"
	"github.com/rushteam/tagkit/store"
	"github.com/rushteam/tagkit/value"
)

// Runner 对一批用户计算 TagValuePersonalized，并用 Kendall-Tau top-k 距离与 TagValueItemSearch 的排名比较。
//
// Parallelism > 1 时多个 goroutine 共享同一个估计器，估计器必须并发安全（关闭缓存）。
type Runner struct {
	Calculator *value.Calculator

	// Store 非 nil 时保存全局排名与每个用户的排名
	Store *store.RankingStore

	Parallelism int     // 最大并发数，<= 1 时串行
	TopK        int     // 比较的前 k 名，0 使用 rankdist.DefaultTopK
	P           float64 // Kendall-Tau 惩罚参数

	Logger *log.Logger
}

// Ranking 是一个作用域下按价值降序排列的标签。
type Ranking struct {
	Tags   []int
	Values []value.TagValue // 原始顺序（与 tags 参数一致）
}

// UserResult 是单个用户的实验结果。
type UserResult struct {
	User     int
	Ranking  Ranking
	Distance float64 // 与全局排名的距离，Skipped 时为 NaN

	// Skipped 表示该用户的个性化分布无定义（画像为空 P(u) = 0，或 gamma 上质量为 0）
	Skipped bool
}

// cacheReporter 由带缓存的估计器实现。
type cacheReporter interface {
	CacheEnabled() bool
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

func (r *Runner) topK() int {
	if r.TopK > 0 {
		return r.TopK
	}
	return rankdist.DefaultTopK
}

func rankingOf(values []value.TagValue) Ranking {
	return Ranking{
		Tags:   rankdist.RankDescending(value.Tags(values), value.Values(values)),
		Values: values,
	}
}

// GlobalRanking 计算非个性化标签排名，Store 非 nil 时保存到 store.GlobalScope。
func (r *Runner) GlobalRanking(ctx context.Context, gamma, tags []int) (Ranking, error) {
	values, err := r.Calculator.TagValueItemSearch(gamma, tags)
	if err != nil {
		return Ranking{}, fmt.Errorf("global tag values: %w", err)
	}
	ranking := rankingOf(values)
	if r.Store != nil {
		if err := r.Store.Save(ctx, store.GlobalScope, value.Tags(values), value.Values(values)); err != nil {
			return Ranking{}, fmt.Errorf("save global ranking: %w", err)
		}
	}
	return ranking, nil
}

// RankUsers 为每个用户计算个性化排名及其与全局排名的距离，结果与 users 一一对应。
// users 为 nil 时取全部用户。个性化分布无定义的用户标记为 Skipped，不中止整个实验。
func (r *Runner) RankUsers(ctx context.Context, users, gamma, tags []int) ([]UserResult, error) {
	if r.Calculator == nil {
		return nil, core.NewDomainError(core.ModuleValue, core.ErrorCodeInvalidInput, "value: runner has no calculator")
	}
	if c, ok := r.Calculator.Estimator().(cacheReporter); ok && c.CacheEnabled() && r.Parallelism > 1 {
		return nil, core.NewDomainError(core.ModuleValue, core.ErrorCodeInvalidInput,
			"value: parallel run requires an estimator with the cache disabled")
	}
	if users == nil {
		users = conv.Range(r.Calculator.Estimator().NumUsers())
	}
	logger := r.logger()
	start := time.Now()

	global, err := r.GlobalRanking(ctx, gamma, tags)
	if err != nil {
		return nil, err
	}

	k := r.topK()
	results := make([]UserResult, len(users))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(r.Parallelism, 1))
	for pos, user := range users {
		pos, user := pos, user
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res, err := r.rankUser(egCtx, user, gamma, tags, global, k)
			if err != nil {
				return fmt.Errorf("user %d: %w", user, err)
			}
			results[pos] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	skipped := 0
	for _, res := range results {
		if res.Skipped {
			skipped++
		}
	}
	logger.Info("ranked users",
		"users", len(users),
		"skipped", skipped,
		"mean_distance", MeanDistance(results),
		"top_k", k,
		"duration", time.Since(start),
	)
	return results, nil
}

func (r *Runner) rankUser(ctx context.Context, user int, gamma, tags []int, global Ranking, k int) (UserResult, error) {
	values, err := r.Calculator.TagValuePersonalized(user, gamma, tags)
	if core.IsProbabilityVector(err) || errors.Is(err, core.ErrZeroMass) {
		r.logger().Warn("skipping user with undefined distribution", "user", user, "err", err)
		return UserResult{User: user, Distance: math.NaN(), Skipped: true}, nil
	}
	if err != nil {
		return UserResult{}, err
	}
	ranking := rankingOf(values)
	d, err := rankdist.KendallTau(ranking.Tags, global.Tags, k, r.P)
	if err != nil {
		return UserResult{}, err
	}
	if r.Store != nil {
		if err := r.Store.Save(ctx, store.UserScope(user), value.Tags(values), value.Values(values)); err != nil {
			return UserResult{}, fmt.Errorf("save ranking: %w", err)
		}
	}
	r.logger().Debug("ranked user", "user", user, "tags", len(values), "distance", d)
	return UserResult{User: user, Ranking: ranking, Distance: d}, nil
}

// MeanDistance 返回未跳过用户的平均距离；没有可用用户时为 NaN。
func MeanDistance(results []UserResult) float64 {
	var (
		sum float64
		n   int
	)
	for _, res := range results {
		if res.Skipped {
			continue
		}
		sum += res.Distance
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
