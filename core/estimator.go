package core

// Estimator 是概率估计的领域接口。
//
// 平滑估计（estimator.Smoothed）、图排序 / 主题模型 / 预计算等变体都实现同一组能力，
// 各自持有完整状态，只共享频次索引构建逻辑；不使用多级继承。
//
// 约定：
//   - 所有 id 都在语料推导出的取值域 [0, NumXxx()) 内，越界返回 ErrIndexOutOfRange
//   - 返回的概率满足 p <= 1+1e-13，否则返回 ErrInvalidProbability
//   - 用户画像按"用户即标签集合"建模：P(u) = Π_k P(t_k)，各标签相互独立
type Estimator interface {
	// ProbItem 返回 P(i)
	ProbItem(item int) (float64, error)

	// ProbTag 返回 P(t)，对整个物品域做边缘化
	ProbTag(tag int) (float64, error)

	// ProbTagGivenItem 返回 P(t|i)
	ProbTagGivenItem(item, tag int) (float64, error)

	// ProbUser 返回 P(u)；画像为空时为 0
	ProbUser(user int) (float64, error)

	// ProbUserGivenItem 返回 P(u|i)；画像为空时为 0
	ProbUserGivenItem(item, user int) (float64, error)

	// LogProbUser 返回 log2 P(u)，避免长画像下乘积下溢
	LogProbUser(user int) (float64, error)

	// LogProbUserGivenItem 返回 log2 P(u|i)
	LogProbUserGivenItem(item, user int) (float64, error)

	NumItems() int
	NumTags() int
	NumUsers() int
	NumAnnotations() int64
}

// Recommender 为用户给出物品相关度（对数域，越大越相关）。
// 用于 item value / top-N 物品排序，以及 gcontext 标签价值的加权。
type Recommender interface {
	// Relevance 返回 items 中每个物品对 user 的相关度，与 items 一一对应
	Relevance(user int, items []int) ([]float64, error)
}
