// Package smoothing 提供条件概率平滑函数。
//
// 每个函数接收 (localFreq, sumLocals, globalFreq, sumGlobals, lambda)，返回平滑后的概率
// 以及回退权重 alpha：对某物品未出现过的标签，估计为 alpha * P_global(t)。
//
// lambda 期望在开区间 (0, 1) 内，由调用方在调用前校验（见 ValidateLambda）。
package smoothing

import (
	"fmt"
	"math"
	"strings"
)

// Func 是平滑函数的统一签名。调用方也可以传入自定义实现。
type Func func(localFreq, sumLocals, globalFreq, sumGlobals, lambda float64) (prob, alpha float64)

// ratio 返回 num/den，den 为 0 时返回 0。
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// JelinekMercer 线性插值平滑：
//
//	prob  = (1-λ)·local/sumLocals + λ·global/sumGlobals
//	alpha = λ
//
// 任一分母为 0 时对应项取 0；两个分母都为 0 时结果为 NaN（不做特殊处理）。
func JelinekMercer(localFreq, sumLocals, globalFreq, sumGlobals, lambda float64) (float64, float64) {
	if sumLocals == 0 && sumGlobals == 0 {
		return math.NaN(), lambda
	}
	prob := (1-lambda)*ratio(localFreq, sumLocals) + lambda*ratio(globalFreq, sumGlobals)
	return prob, lambda
}

// Bayes 是 Dirichlet 先验平滑：
//
//	prob  = (local + λ·global/sumGlobals) / (sumLocals + λ)
//	alpha = λ / (sumLocals + λ)
//
// sumLocals == 0 且 λ == 0 时为 0/0 = NaN。
func Bayes(localFreq, sumLocals, globalFreq, sumGlobals, lambda float64) (float64, float64) {
	r := ratio(globalFreq, sumGlobals)
	den := sumLocals + lambda
	if den == 0 {
		return math.NaN(), math.NaN()
	}
	return (localFreq + lambda*r) / den, lambda / den
}

// None 是不平滑的 MLE，即 λ=0 的 Jelinek-Mercer；传入的 lambda 被忽略。
func None(localFreq, sumLocals, globalFreq, sumGlobals, _ float64) (float64, float64) {
	return JelinekMercer(localFreq, sumLocals, globalFreq, sumGlobals, 0)
}

// Kind 是内置平滑函数的枚举（闭集）。
type Kind int

const (
	KindJM Kind = iota
	KindBayes
	KindNone
)

var kindNames = map[Kind]string{
	KindJM:    "JM",
	KindBayes: "Bayes",
	KindNone:  "None",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Func 返回枚举对应的平滑函数。
func (k Kind) Func() Func {
	switch k {
	case KindBayes:
		return Bayes
	case KindNone:
		return None
	default:
		return JelinekMercer
	}
}

// NeedsLambda 报告该平滑方式是否使用 λ。
func (k Kind) NeedsLambda() bool {
	return k != KindNone
}

// ParseKind 解析名称（"JM" / "Bayes" / "None"，不区分大小写）。
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown smoothing %q (supported: JM, Bayes, None)", name)
}

// MarshalText 让 Kind 在 YAML/JSON/TOML 配置中以名称出现。
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 见 MarshalText。
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ValidateLambda 校验 λ 是否在开区间 (0, 1) 内。
func ValidateLambda(lambda float64) error {
	if !(lambda > 0 && lambda < 1) {
		return fmt.Errorf("lambda %v out of range (0, 1)", lambda)
	}
	return nil
}
