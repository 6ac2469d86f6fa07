package core

import (
	"context"
	"io"
	"time"
)

// Annotation 是一条 (user, item, tag, date) 标注记录，不可变。
// id 稠密、非负、由外部分配，除身份外没有语义。
// 读取器用负数表示缺失的列，索引构建时按 MALFORMED_RECORD 处理。
type Annotation struct {
	User int
	Item int
	Tag  int
	Date time.Time
}

// Valid 报告必需字段是否齐全（所有 id 非负）。
func (a Annotation) Valid() bool {
	return a.User >= 0 && a.Item >= 0 && a.Tag >= 0
}

// AnnotationStream 是一次性的标注流。
//
// 约定：
//   - Next 依次返回记录，流结束时返回 io.EOF
//   - 只能消费一次，不支持回绕；需要第二遍时由调用方重新打开
//   - 读取器遇到缺字段的记录时返回 ErrMalformedRecord 类错误
type AnnotationStream interface {
	Next(ctx context.Context) (Annotation, error)
}

// SliceStream 是基于内存切片的 AnnotationStream，用于测试与小规模语料。
type SliceStream struct {
	records []Annotation
	pos     int
}

// NewSliceStream 创建内存标注流。
func NewSliceStream(records []Annotation) *SliceStream {
	return &SliceStream{records: records}
}

func (s *SliceStream) Next(ctx context.Context) (Annotation, error) {
	if err := ctx.Err(); err != nil {
		return Annotation{}, err
	}
	if s.pos >= len(s.records) {
		return Annotation{}, io.EOF
	}
	a := s.records[s.pos]
	s.pos++
	return a, nil
}

var _ AnnotationStream = (*SliceStream)(nil)
