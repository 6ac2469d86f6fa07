// Package value 基于 Estimator 计算重归一化的条件物品分布，以及标签 / 物品价值。
//
// 所有向量都在调用方给定的候选子集 gamma 上计算并重归一化（和为 1）；gamma 为 nil 时取整个物品域。
// 含贝叶斯公式的分布在 log2 域内计算，再做最大值平移后归一化：结果与线性域一致，
// 但不会因为长画像的概率乘积下溢为 0。
//
// P(u)==0 或 P(t)==0 时公式无定义，NaN / ∞ 会向上传播，调用方应事先过滤零先验的用户和标签。
// gamma 上总质量为 0（例如只含没有标注的物品）时返回 core.ErrZeroMass。
package value

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/entropy"
	"github.com/rushteam/tagkit/pkg/conv"
)

// TagValue 是单个标签的价值。
type TagValue struct {
	Tag   int
	Value float64
}

// Calculator 组合 Estimator 与可选的 Recommender。
type Calculator struct {
	est core.Estimator
	rec core.Recommender
}

// Option 配置 Calculator。
type Option func(*Calculator)

// WithRecommender 注入 Recommender，ItemValue 与 TagValueGContext 需要它。
func WithRecommender(r core.Recommender) Option {
	return func(c *Calculator) { c.rec = r }
}

// New 创建 Calculator。
func New(est core.Estimator, opts ...Option) *Calculator {
	c := &Calculator{est: est}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Estimator 返回底层估计器。
func (c *Calculator) Estimator() core.Estimator { return c.est }

func (c *Calculator) items(gamma []int) ([]int, error) {
	if gamma == nil {
		return conv.Range(c.est.NumItems()), nil
	}
	if len(gamma) == 0 {
		return nil, core.NewDomainError(core.ModuleValue, core.ErrorCodeInvalidInput, "value: empty gamma set")
	}
	return gamma, nil
}

// RnormProbItems 返回在 gamma 上重归一化的 P(i)。
func (c *Calculator) RnormProbItems(gamma []int) ([]float64, error) {
	items, err := c.items(gamma)
	if err != nil {
		return nil, err
	}
	p, err := conv.MapErr(items, c.est.ProbItem)
	if err != nil {
		return nil, err
	}
	sum := floats.Sum(p)
	if sum == 0 {
		return nil, core.ErrZeroMass
	}
	floats.Scale(1/sum, p)
	return p, nil
}

// RnormProbItemsGivenUser 返回 P(i|u) ∝ P(u|i)·P(i)/P(u)，P(u) 取自估计器。
func (c *Calculator) RnormProbItemsGivenUser(user int, gamma []int) ([]float64, error) {
	items, err := c.items(gamma)
	if err != nil {
		return nil, err
	}
	base, err := c.userBase(user, items)
	if err != nil {
		return nil, err
	}
	return normalizeLog2(base)
}

// RnormProbItemsGivenUserTag 返回 P(i|u,t) ∝ P(t|i)·P(u|i)·P(i) / (P(u)·P(t))。
func (c *Calculator) RnormProbItemsGivenUserTag(user, tag int, gamma []int) ([]float64, error) {
	items, err := c.items(gamma)
	if err != nil {
		return nil, err
	}
	base, err := c.userBase(user, items)
	if err != nil {
		return nil, err
	}
	pt, err := c.est.ProbTag(tag)
	if err != nil {
		return nil, err
	}
	return c.withTag(base, items, tag, pt)
}

// RnormProbItemsGivenTag 返回 P(i|t) ∝ P(t|i)·P(i)/P(t)。
func (c *Calculator) RnormProbItemsGivenTag(tag int, gamma []int) ([]float64, error) {
	items, err := c.items(gamma)
	if err != nil {
		return nil, err
	}
	base, err := c.itemBase(items)
	if err != nil {
		return nil, err
	}
	pt, err := c.est.ProbTag(tag)
	if err != nil {
		return nil, err
	}
	return c.withTag(base, items, tag, pt)
}

// TagValuePersonalized 对每个标签计算 KL(P(I|u,t) ‖ P(I|u))：
// 标签使物品检索分布偏离用户基线兴趣的程度。
//
// tags 为 nil 时取 P(t) > 0 的全部标签。
func (c *Calculator) TagValuePersonalized(user int, gamma, tags []int) ([]TagValue, error) {
	items, err := c.items(gamma)
	if err != nil {
		return nil, err
	}
	base, err := c.userBase(user, items)
	if err != nil {
		return nil, err
	}
	baseline, err := normalizeLog2(base)
	if err != nil {
		return nil, err
	}
	return c.eachTag(tags, func(tag int, pt float64) (float64, error) {
		p, err := c.withTag(base, items, tag, pt)
		if err != nil {
			return 0, err
		}
		return entropy.KullbackLeibler(p, baseline)
	})
}

// TagValueItemSearch 是非个性化版本：KL(P(I|t) ‖ P(I))。
func (c *Calculator) TagValueItemSearch(gamma, tags []int) ([]TagValue, error) {
	items, err := c.items(gamma)
	if err != nil {
		return nil, err
	}
	base, err := c.itemBase(items)
	if err != nil {
		return nil, err
	}
	baseline, err := normalizeLog2(base)
	if err != nil {
		return nil, err
	}
	return c.eachTag(tags, func(tag int, pt float64) (float64, error) {
		p, err := c.withTag(base, items, tag, pt)
		if err != nil {
			return 0, err
		}
		return entropy.KullbackLeibler(p, baseline)
	})
}

// TagValueGContext 是 KL(P(I|t) ‖ P(I)) 乘以该标签下的平均物品相关度
// Σ_i P(i|t)·R_u(i)，R_u 是 Recommender 给出的相关度在 gamma 上的归一化。
func (c *Calculator) TagValueGContext(user int, gamma, tags []int) ([]TagValue, error) {
	if c.rec == nil {
		return nil, core.ErrNoRecommender
	}
	items, err := c.items(gamma)
	if err != nil {
		return nil, err
	}
	rel, err := c.rec.Relevance(user, items)
	if err != nil {
		return nil, err
	}
	relevance, err := normalizeLog2(rel)
	if err != nil {
		return nil, err
	}

	base, err := c.itemBase(items)
	if err != nil {
		return nil, err
	}
	baseline, err := normalizeLog2(base)
	if err != nil {
		return nil, err
	}
	return c.eachTag(tags, func(tag int, pt float64) (float64, error) {
		p, err := c.withTag(base, items, tag, pt)
		if err != nil {
			return 0, err
		}
		kl, err := entropy.KullbackLeibler(p, baseline)
		if err != nil {
			return 0, err
		}
		return kl * floats.Dot(p, relevance), nil
	})
}

// ItemValue 返回整个物品域上每个物品对 user 的相关度 log P(u|i) + log P(i)，用于 top-N 物品排序。
func (c *Calculator) ItemValue(user int) ([]float64, error) {
	if c.rec == nil {
		return nil, core.ErrNoRecommender
	}
	return c.rec.Relevance(user, conv.Range(c.est.NumItems()))
}

// itemBase 返回 log2 P(i)。
func (c *Calculator) itemBase(items []int) ([]float64, error) {
	return conv.MapErr(items, func(item int) (float64, error) {
		pi, err := c.est.ProbItem(item)
		if err != nil {
			return 0, err
		}
		return math.Log2(pi), nil
	})
}

// userBase 返回 log2 P(u|i) + log2 P(i) - log2 P(u)。
func (c *Calculator) userBase(user int, items []int) ([]float64, error) {
	lpu, err := c.est.LogProbUser(user)
	if err != nil {
		return nil, err
	}
	return conv.MapErr(items, func(item int) (float64, error) {
		lpui, err := c.est.LogProbUserGivenItem(item, user)
		if err != nil {
			return 0, err
		}
		pi, err := c.est.ProbItem(item)
		if err != nil {
			return 0, err
		}
		return lpui + math.Log2(pi) - lpu, nil
	})
}

// withTag 在 base 上叠加 log2 P(t|i) - log2 P(t) 并归一化。
func (c *Calculator) withTag(base []float64, items []int, tag int, pt float64) ([]float64, error) {
	lpt := math.Log2(pt)
	logs := make([]float64, len(items))
	for k, item := range items {
		pti, err := c.est.ProbTagGivenItem(item, tag)
		if err != nil {
			return nil, err
		}
		logs[k] = base[k] + math.Log2(pti) - lpt
	}
	return normalizeLog2(logs)
}

// eachTag 对每个标签计算 P(t) 一次并调用 f；tags 为 nil 时跳过 P(t) == 0 的标签。
func (c *Calculator) eachTag(tags []int, f func(tag int, pt float64) (float64, error)) ([]TagValue, error) {
	explicit := tags != nil
	if !explicit {
		tags = conv.Range(c.est.NumTags())
	}
	out := make([]TagValue, 0, len(tags))
	for _, tag := range tags {
		pt, err := c.est.ProbTag(tag)
		if err != nil {
			return nil, err
		}
		if pt == 0 && !explicit {
			continue
		}
		v, err := f(tag, pt)
		if err != nil {
			return nil, err
		}
		out = append(out, TagValue{Tag: tag, Value: v})
	}
	return out, nil
}

// normalizeLog2 把 log2 权重转为和为 1 的概率向量。
// 全部为 -Inf（零质量）时返回 core.ErrZeroMass；出现 NaN / +Inf 时结果为 NaN。
func normalizeLog2(logs []float64) ([]float64, error) {
	out := make([]float64, len(logs))
	if len(logs) == 0 {
		return out, nil
	}
	m := floats.Max(logs)
	if math.IsInf(m, -1) && !floats.HasNaN(logs) {
		return nil, core.ErrZeroMass
	}
	for i, l := range logs {
		out[i] = math.Exp2(l - m)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out, nil
}

// Values 提取 TagValue 中的价值，与 tags 一一对应。
func Values(tvs []TagValue) []float64 {
	return conv.Map(tvs, func(tv TagValue) float64 { return tv.Value })
}

// Tags 提取 TagValue 中的标签 id。
func Tags(tvs []TagValue) []int {
	return conv.Map(tvs, func(tv TagValue) int { return tv.Tag })
}
