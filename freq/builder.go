package freq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rushteam/tagkit/core"
)

// BuilderOption 配置索引构建。
type BuilderOption func(*builderOptions)

type builderOptions struct {
	profileCap ProfileCap
	logger     *log.Logger
}

// WithProfileCap 设置用户画像截断。
func WithProfileCap(c ProfileCap) BuilderOption {
	return func(o *builderOptions) { o.profileCap = c }
}

// WithLogger 设置日志；默认 log.Default()。
func WithLogger(l *log.Logger) BuilderOption {
	return func(o *builderOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// accumulator 是第一阶段的动态结构：维度大小在整个流读完之前未知。
type accumulator struct {
	tagFreq   map[int]int64
	itemCount map[int]int64
	itemTags  map[int]map[int]int64
	userTags  map[int]map[int]int64
	n         int64
	maxItem   int
	maxTag    int
	maxUser   int
}

func newAccumulator() *accumulator {
	return &accumulator{
		tagFreq:   make(map[int]int64),
		itemCount: make(map[int]int64),
		itemTags:  make(map[int]map[int]int64),
		userTags:  make(map[int]map[int]int64),
		maxItem:   -1,
		maxTag:    -1,
		maxUser:   -1,
	}
}

func (a *accumulator) add(r core.Annotation) {
	a.n++
	a.tagFreq[r.Tag]++
	a.itemCount[r.Item]++

	tags := a.itemTags[r.Item]
	if tags == nil {
		tags = make(map[int]int64)
		a.itemTags[r.Item] = tags
	}
	tags[r.Tag]++

	ut := a.userTags[r.User]
	if ut == nil {
		ut = make(map[int]int64)
		a.userTags[r.User] = ut
	}
	ut[r.Tag]++

	a.maxItem = max(a.maxItem, r.Item)
	a.maxTag = max(a.maxTag, r.Tag)
	a.maxUser = max(a.maxUser, r.User)
}

// materialize 是第二阶段：按最大 id + 1 分配稠密切片。
func (a *accumulator) materialize(limit ProfileCap) *Index {
	x := &Index{
		TagGlobalFreq:   make([]int64, a.maxTag+1),
		ItemGlobalCount: make([]int64, a.maxItem+1),
		ItemLocalSum:    make([]int64, a.maxItem+1),
		UserTagProfile:  make([][]int, a.maxUser+1),
		NAnnotations:    a.n,
		itemTags:        make([]map[int]int64, a.maxItem+1),
	}
	for t, c := range a.tagFreq {
		x.TagGlobalFreq[t] = c
	}
	for i, c := range a.itemCount {
		x.ItemGlobalCount[i] = c
	}
	for i, tags := range a.itemTags {
		var sum int64
		for _, c := range tags {
			sum += c
		}
		x.ItemLocalSum[i] = sum
		x.itemTags[i] = tags
	}
	for u, tags := range a.userTags {
		x.UserTagProfile[u] = profileOf(tags, limit)
	}
	return x
}

// Build 一次性消费标注流并构建索引。
//
// 流只读一遍，不回绕。任何一条记录缺少必需字段都会返回 ErrMalformedRecord 类错误，
// 此时不返回部分索引。复杂度 O(N) 时间，O(物品数 + 标签数 + 非零共现对) 空间；
// 结果与记录顺序无关。
func Build(ctx context.Context, stream core.AnnotationStream, opts ...BuilderOption) (*Index, error) {
	o := builderOptions{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	acc := newAccumulator()
	for {
		r, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if core.IsMalformedRecord(err) || ctx.Err() != nil {
				return nil, err
			}
			return nil, fmt.Errorf("read record %d: %w", acc.n+1, err)
		}
		if !r.Valid() {
			return nil, core.Errorf(core.ErrMalformedRecord,
				"record %d missing required field (user=%d item=%d tag=%d)", acc.n+1, r.User, r.Item, r.Tag)
		}
		acc.add(r)
	}

	x := acc.materialize(o.profileCap)
	o.logger.Debug("built frequency index",
		"annotations", x.NAnnotations,
		"items", x.NumItems(),
		"tags", x.NumTags(),
		"users", x.NumUsers(),
		"pairs", x.NumPairs(),
		"duration", time.Since(start).Round(time.Millisecond))
	return x, nil
}
