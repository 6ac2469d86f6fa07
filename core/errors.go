package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持 errors.Is / errors.As：同 Module + Code 视为同一类错误
//
// 使用场景：
//   - 索引构建：MALFORMED_RECORD
//   - 概率估计：INVALID_PROBABILITY, INDEX_OUT_OF_RANGE
//   - 熵 / 散度：INVALID_PROBABILITY_VECTOR
//   - Store：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "MALFORMED_RECORD"）
	Message string // 错误消息
	Module  string // 模块名称（如 "freq", "estimator", "entropy"）
	Cause   error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误，兼容 errors.Is / errors.As。
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is 按 Module + Code 匹配，使 errors.Is(err, ErrMalformedRecord) 对携带上下文的实例也成立。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// Errorf 基于已有的错误类别创建带上下文的实例，例如：
//
//	core.Errorf(core.ErrIndexOutOfRange, "item %d out of range [0, %d)", item, n)
func Errorf(kind *DomainError, format string, args ...any) *DomainError {
	return &DomainError{
		Module:  kind.Module,
		Code:    kind.Code,
		Message: kind.Module + ": " + fmt.Sprintf(format, args...),
	}
}

// Wrapf 与 Errorf 相同，但保留底层错误。
func Wrapf(kind *DomainError, cause error, format string, args ...any) *DomainError {
	e := Errorf(kind, format, args...)
	e.Cause = cause
	return e
}

// 错误代码常量
const (
	ErrorCodeNotFound           = "NOT_FOUND"                  // 资源不存在
	ErrorCodeNotSupported       = "NOT_SUPPORTED"              // 操作不支持
	ErrorCodeInvalidInput       = "INVALID_INPUT"              // 输入无效
	ErrorCodeMalformedRecord    = "MALFORMED_RECORD"           // 标注记录缺少必需字段
	ErrorCodeInvalidProbability = "INVALID_PROBABILITY"        // 概率超出 [0, 1+ε]，建模缺陷
	ErrorCodeProbabilityVector  = "INVALID_PROBABILITY_VECTOR" // 概率向量不满足取值/求和前置条件
	ErrorCodeIndexOutOfRange    = "INDEX_OUT_OF_RANGE"         // id 超出语料推导出的取值域
)

// 模块名称常量
const (
	ModuleFreq      = "freq"      // 频次索引
	ModuleEstimator = "estimator" // 概率估计
	ModuleEntropy   = "entropy"   // 熵 / 散度
	ModuleValue     = "value"     // 标签价值
	ModuleRank      = "rankdist"  // 排名距离
	ModuleStore     = "store"     // 存储模块
)

// 错误类别（哨兵值），用 errors.Is 判断
var (
	// ErrMalformedRecord 标注记录缺少必需字段，整个索引构建中止
	ErrMalformedRecord = NewDomainError(ModuleFreq, ErrorCodeMalformedRecord, "freq: malformed annotation record")

	// ErrInvalidProbability 计算出的概率 p > 1+ε，属于致命错误，不重试
	ErrInvalidProbability = NewDomainError(ModuleEstimator, ErrorCodeInvalidProbability, "estimator: invalid probability")

	// ErrIndexOutOfRange id 不在索引的取值域内
	ErrIndexOutOfRange = NewDomainError(ModuleEstimator, ErrorCodeIndexOutOfRange, "estimator: index out of range")

	// ErrProbabilityVector 概率向量校验失败
	ErrProbabilityVector = NewDomainError(ModuleEntropy, ErrorCodeProbabilityVector, "entropy: invalid probability vector")

	// ErrNoRecommender 需要 Recommender 的操作未注入 Recommender
	ErrNoRecommender = NewDomainError(ModuleValue, ErrorCodeNotSupported, "value: recommender not configured")

	// ErrZeroMass gamma 上的分布总质量为 0，无法重归一化
	ErrZeroMass = NewDomainError(ModuleValue, ErrorCodeInvalidInput, "value: gamma has zero probability mass")
)

// IsMalformedRecord 检查错误是否为 MALFORMED_RECORD
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsInvalidProbability 检查错误是否为 INVALID_PROBABILITY
func IsInvalidProbability(err error) bool {
	return errors.Is(err, ErrInvalidProbability)
}

// IsIndexOutOfRange 检查错误是否为 INDEX_OUT_OF_RANGE
func IsIndexOutOfRange(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange)
}

// IsProbabilityVector 检查错误是否为 INVALID_PROBABILITY_VECTOR
func IsProbabilityVector(err error) bool {
	return errors.Is(err, ErrProbabilityVector)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT（任意模块）
func IsInvalidInput(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

