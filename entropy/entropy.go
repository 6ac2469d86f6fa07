// Package entropy 提供经过校验的概率向量运算：熵、互信息与 KL 散度（以 bit 为单位）。
//
// 所有函数在计算前调用 Validate：每个分量在 [0, 1] 内，且总和在 1±1e-10 内，
// 否则返回 ErrProbabilityVector 类错误。值为 0 的分量表示"不存在"，按 0·log0 = 0 处理。
package entropy

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/tagkit/core"
)

// SumTolerance 是概率向量求和的容差。
const SumTolerance = 1e-10

// Validate 检查 p 是否是合法的概率向量。
func Validate(p []float64) error {
	for i, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return core.Errorf(core.ErrProbabilityVector, "entry %d = %v not in [0, 1]", i, v)
		}
	}
	sum := floats.Sum(p)
	if sum < 1-SumTolerance || sum > 1+SumTolerance {
		return core.Errorf(core.ErrProbabilityVector, "sum = %v not within %g of 1", sum, SumTolerance)
	}
	return nil
}

// Entropy 返回 H(p) = -Σ_{p_i≠0} p_i·log2(p_i)。
func Entropy(p []float64) (float64, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	return entropy(p), nil
}

func entropy(p []float64) float64 {
	var h float64
	for _, v := range p {
		if v != 0 {
			h -= v * math.Log2(v)
		}
	}
	return h
}

// MutualInformation 返回 H(px) - H(pxy)。
func MutualInformation(px, pxy []float64) (float64, error) {
	hx, hxy, err := entropies(px, pxy)
	if err != nil {
		return 0, err
	}
	return hx - hxy, nil
}

// NormalizedMutualInformation 返回 1 - (H(x)-H(xy))/H(x)；H(x)==0 或 H(xy)==0 时定义为 0。
func NormalizedMutualInformation(px, pxy []float64) (float64, error) {
	hx, hxy, err := entropies(px, pxy)
	if err != nil {
		return 0, err
	}
	if hx == 0 || hxy == 0 {
		return 0, nil
	}
	return 1 - (hx-hxy)/hx, nil
}

func entropies(px, pxy []float64) (float64, float64, error) {
	hx, err := Entropy(px)
	if err != nil {
		return 0, 0, err
	}
	hxy, err := Entropy(pxy)
	if err != nil {
		return 0, 0, err
	}
	return hx, hxy, nil
}

// KullbackLeibler 返回 D(p‖q) = Σ_{p_i≠0} p_i·(log2 p_i - log2 q_i)。
//
// 只要存在 p_i≠0 且 q_i==0，结果就是精确的 +Inf（离散定义 n·log(n/0) = ∞），
// 这是设计上的返回值而不是错误，见 IsUndefinedDivergence。NaN 则意味着上游缺陷。
func KullbackLeibler(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, core.NewDomainError(core.ModuleEntropy, core.ErrorCodeInvalidInput, "entropy: vectors differ in length")
	}
	if err := Validate(p); err != nil {
		return 0, err
	}
	if err := Validate(q); err != nil {
		return 0, err
	}
	for i, v := range p {
		if v != 0 && q[i] == 0 {
			return math.Inf(1), nil
		}
	}
	var d float64
	for i, v := range p {
		if v != 0 {
			d += v * (math.Log2(v) - math.Log2(q[i]))
		}
	}
	return d, nil
}

// IsUndefinedDivergence 报告 KL 值是否为设计上的 +Inf。
func IsUndefinedDivergence(v float64) bool {
	return math.IsInf(v, 1)
}
