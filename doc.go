// Package tagkit 是一个标签价值工具包（Tag Value Kit）。
//
// 设计要点：
// - Two-phase index: 标注流先累积为稀疏计数，再物化为按 id 稠密的频次索引
// - Smoothed estimates: P(i)、P(t)、P(t|i)、P(u)、P(u|i) 均由平滑函数（JM / Bayes / None）推导
// - Value as divergence: 标签价值 = 加入标签后物品检索分布相对基线的 KL 散度（bits）
package tagkit

import (
	"github.com/rushteam/tagkit/core"
	"github.com/rushteam/tagkit/smoothing"
	"github.com/rushteam/tagkit/value"
)

// 轻量 facade：便于用户直接 import "tagkit" 使用核心抽象。
type Annotation = core.Annotation
type AnnotationStream = core.AnnotationStream
type Estimator = core.Estimator
type Recommender = core.Recommender
type TagValue = value.TagValue
type Smoothing = smoothing.Kind

const (
	SmoothingJM    = smoothing.KindJM
	SmoothingBayes = smoothing.KindBayes
	SmoothingNone  = smoothing.KindNone
)
