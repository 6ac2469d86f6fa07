package value

import (
	"math"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/pkg/conv"
)

// ProbabilisticRecommender 用估计器为物品打分：log2 P(u|i) + log2 P(i)。
// 与 P(i|u) 只差一个与物品无关的常数 log2 P(u)，因此排序与 P(i|u) 一致。
type ProbabilisticRecommender struct {
	Estimator core.Estimator
}

// NewProbabilisticRecommender 创建基于估计器的 Recommender。
func NewProbabilisticRecommender(est core.Estimator) *ProbabilisticRecommender {
	return &ProbabilisticRecommender{Estimator: est}
}

func (r *ProbabilisticRecommender) Relevance(user int, items []int) ([]float64, error) {
	return conv.MapErr(items, func(item int) (float64, error) {
		lpui, err := r.Estimator.LogProbUserGivenItem(item, user)
		if err != nil {
			return 0, err
		}
		pi, err := r.Estimator.ProbItem(item)
		if err != nil {
			return 0, err
		}
		return lpui + math.Log2(pi), nil
	})
}

var _ core.Recommender = (*ProbabilisticRecommender)(nil)
