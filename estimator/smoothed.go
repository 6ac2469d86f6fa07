// Package estimator 实现基于平滑的概率估计器（core.Estimator）。
//
// 估计器持有一个频次索引和一个平滑函数，状态为 Unbuilt → Populated：
// 一次构造调用消费整个标注流，之后只读。唯一的可变状态是 (item, tag) 概率缓存，
// 首次访问时惰性写入，仅在单写者前提下安全；多 goroutine 共享同一实例时，
// 需要外部加锁或使用 WithCache(false)。
package estimator

import (
	"context"
	"math"

	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/freq"
	"github.com/rushteam/tagkit/smoothing"
)

// probEpsilon 是概率上界容差：p <= 1+probEpsilon。
const probEpsilon = 1e-13

// DefaultLambda 是未指定 λ 时的默认值。
const DefaultLambda = 0.5

type itemTag struct {
	item, tag int
}

// Smoothed 是平滑估计器。
type Smoothed struct {
	idx    *freq.Index
	smooth smoothing.Func
	kind   smoothing.Kind
	lambda float64
	cache  map[itemTag]float64 // nil 表示关闭缓存
}

// Option 配置 Smoothed。
type Option func(*options)

type options struct {
	kind    smoothing.Kind
	custom  smoothing.Func
	lambda  float64
	cache   bool
	builder []freq.BuilderOption
}

// WithSmoothing 选择内置平滑函数，默认 KindJM。
func WithSmoothing(k smoothing.Kind) Option {
	return func(o *options) { o.kind = k }
}

// WithSmoothingFunc 使用自定义平滑函数，优先于 WithSmoothing。
func WithSmoothingFunc(f smoothing.Func) Option {
	return func(o *options) { o.custom = f }
}

// WithLambda 设置平滑参数 λ。
func WithLambda(lambda float64) Option {
	return func(o *options) { o.lambda = lambda }
}

// WithCache 开关 (item, tag) 概率缓存，默认开启。
func WithCache(enabled bool) Option {
	return func(o *options) { o.cache = enabled }
}

// WithBuilderOptions 透传给 freq.Build（画像截断、日志等），仅 Build 使用。
func WithBuilderOptions(opts ...freq.BuilderOption) Option {
	return func(o *options) { o.builder = append(o.builder, opts...) }
}

// New 基于已构建的索引创建估计器。
func New(idx *freq.Index, opts ...Option) *Smoothed {
	o := options{kind: smoothing.KindJM, lambda: DefaultLambda, cache: true}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Smoothed{
		idx:    idx,
		smooth: o.kind.Func(),
		kind:   o.kind,
		lambda: o.lambda,
	}
	if o.custom != nil {
		s.smooth = o.custom
	}
	if o.kind == smoothing.KindNone && o.custom == nil {
		s.lambda = 0
	}
	if o.cache {
		s.cache = make(map[itemTag]float64)
	}
	return s
}

// Build 一次性消费标注流，构建索引并返回估计器。
func Build(ctx context.Context, stream core.AnnotationStream, opts ...Option) (*Smoothed, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	idx, err := freq.Build(ctx, stream, o.builder...)
	if err != nil {
		return nil, err
	}
	return New(idx, opts...), nil
}

// Index 返回底层频次索引（只读）。
func (s *Smoothed) Index() *freq.Index { return s.idx }

// Smoothing 返回内置平滑函数的枚举（使用 WithSmoothingFunc 时无意义）。
func (s *Smoothed) Smoothing() smoothing.Kind { return s.kind }

// Lambda 返回生效的 λ。
func (s *Smoothed) Lambda() float64 { return s.lambda }

// CacheEnabled 报告是否启用了 (item, tag) 缓存；未启用时实例可被并发只读共享。
func (s *Smoothed) CacheEnabled() bool { return s.cache != nil }

func (s *Smoothed) NumItems() int         { return s.idx.NumItems() }
func (s *Smoothed) NumTags() int          { return s.idx.NumTags() }
func (s *Smoothed) NumUsers() int         { return s.idx.NumUsers() }
func (s *Smoothed) NumAnnotations() int64 { return s.idx.NAnnotations }

func (s *Smoothed) checkItem(item int) error {
	if item < 0 || item >= s.idx.NumItems() {
		return core.Errorf(core.ErrIndexOutOfRange, "item %d out of range [0, %d)", item, s.idx.NumItems())
	}
	return nil
}

func (s *Smoothed) checkTag(tag int) error {
	if tag < 0 || tag >= s.idx.NumTags() {
		return core.Errorf(core.ErrIndexOutOfRange, "tag %d out of range [0, %d)", tag, s.idx.NumTags())
	}
	return nil
}

func (s *Smoothed) checkUser(user int) error {
	if user < 0 || user >= s.idx.NumUsers() {
		return core.Errorf(core.ErrIndexOutOfRange, "user %d out of range [0, %d)", user, s.idx.NumUsers())
	}
	return nil
}

func checkProb(what string, p float64) (float64, error) {
	if p > 1+probEpsilon {
		return 0, core.Errorf(core.ErrInvalidProbability, "%s = %v exceeds 1", what, p)
	}
	return p, nil
}

// ProbItem 返回 MLE 概率 ItemGlobalCount[item] / N。
func (s *Smoothed) ProbItem(item int) (float64, error) {
	if err := s.checkItem(item); err != nil {
		return 0, err
	}
	p := float64(s.idx.ItemGlobalCount[item]) / float64(s.idx.NAnnotations)
	return checkProb("P(i)", p)
}

// ProbTag 不是原始 MLE，而是对平滑后的逐物品模型做边缘化：
//
//	P(t) = Σ_i P(t|i)·P(i)
//
// 每次调用 O(物品数)，不缓存；需要复用时由调用方自行缓存。
func (s *Smoothed) ProbTag(tag int) (float64, error) {
	if err := s.checkTag(tag); err != nil {
		return 0, err
	}
	var p float64
	for item := 0; item < s.idx.NumItems(); item++ {
		pi, err := s.ProbItem(item)
		if err != nil {
			return 0, err
		}
		if pi == 0 {
			continue
		}
		pti, err := s.ProbTagGivenItem(item, tag)
		if err != nil {
			return 0, err
		}
		p += pti * pi
	}
	return checkProb("P(t)", p)
}

// ProbTagGivenItem 返回平滑后的 P(t|i)。
//
// (item, tag) 共现过：直接取平滑函数的概率；
// 未共现：alpha · TagGlobalFreq[tag]/N，alpha 来自对零计数做平滑。
func (s *Smoothed) ProbTagGivenItem(item, tag int) (float64, error) {
	if err := s.checkItem(item); err != nil {
		return 0, err
	}
	if err := s.checkTag(tag); err != nil {
		return 0, err
	}
	key := itemTag{item: item, tag: tag}
	if s.cache != nil {
		if p, ok := s.cache[key]; ok {
			return p, nil
		}
	}

	var (
		local     = float64(s.idx.ItemTagLocalFreq(item, tag))
		sumLocals = float64(s.idx.ItemLocalSum[item])
		global    = float64(s.idx.TagGlobalFreq[tag])
		n         = float64(s.idx.NAnnotations)
		p         float64
	)
	if local > 0 {
		p, _ = s.smooth(local, sumLocals, global, n, s.lambda)
	} else {
		_, alpha := s.smooth(0, sumLocals, global, n, s.lambda)
		p = alpha * (global / n)
	}

	p, err := checkProb("P(t|i)", p)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache[key] = p
	}
	return p, nil
}

// ProbUser 按"用户即标签集合"的独立性假设计算 P(u) = Π_k P(t_k)。
// 画像中的标签视为相互独立。画像为空时返回 0。
func (s *Smoothed) ProbUser(user int) (float64, error) {
	return s.productOverProfile(user, s.ProbTag)
}

// ProbUserGivenItem 计算 P(u|i) = Π_k P(t_k|i)，画像为空时返回 0。
func (s *Smoothed) ProbUserGivenItem(item, user int) (float64, error) {
	if err := s.checkItem(item); err != nil {
		return 0, err
	}
	return s.productOverProfile(user, func(tag int) (float64, error) {
		return s.ProbTagGivenItem(item, tag)
	})
}

// LogProbUser 返回 Σ_k log2 P(t_k)；画像为空时返回 -Inf。
func (s *Smoothed) LogProbUser(user int) (float64, error) {
	return s.logSumOverProfile(user, s.ProbTag)
}

// LogProbUserGivenItem 返回 Σ_k log2 P(t_k|i)；画像为空时返回 -Inf。
func (s *Smoothed) LogProbUserGivenItem(item, user int) (float64, error) {
	if err := s.checkItem(item); err != nil {
		return 0, err
	}
	return s.logSumOverProfile(user, func(tag int) (float64, error) {
		return s.ProbTagGivenItem(item, tag)
	})
}

func (s *Smoothed) productOverProfile(user int, prob func(int) (float64, error)) (float64, error) {
	if err := s.checkUser(user); err != nil {
		return 0, err
	}
	profile := s.idx.UserTagProfile[user]
	if len(profile) == 0 {
		return 0, nil
	}
	p := 1.0
	for _, tag := range profile {
		pt, err := prob(tag)
		if err != nil {
			return 0, err
		}
		p *= pt
	}
	return checkProb("P(u)", p)
}

func (s *Smoothed) logSumOverProfile(user int, prob func(int) (float64, error)) (float64, error) {
	if err := s.checkUser(user); err != nil {
		return 0, err
	}
	profile := s.idx.UserTagProfile[user]
	if len(profile) == 0 {
		return math.Inf(-1), nil
	}
	var lp float64
	for _, tag := range profile {
		pt, err := prob(tag)
		if err != nil {
			return 0, err
		}
		lp += math.Log2(pt)
	}
	return lp, nil
}

var _ core.Estimator = (*Smoothed)(nil)
