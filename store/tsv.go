package store

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/rushteam/tagkit/core"
)

// TSVStream 从 `user\titem\ttag[\tdate]` 文本读取标注，实现 core.AnnotationStream。
// 以 # 开头的行视为注释；date 列可缺省或为空（零值时间）。
type TSVStream struct {
	r      *csv.Reader
	closer io.Closer
	header bool
	read   int
	line   int
}

// TSVOption 配置 TSVStream。
type TSVOption func(*TSVStream)

// WithHeader 跳过第一行表头。
func WithHeader() TSVOption {
	return func(s *TSVStream) { s.header = true }
}

// NewTSVStream 基于 reader 创建标注流；reader 实现 io.Closer 时由 Close 关闭。
func NewTSVStream(r io.Reader, opts ...TSVOption) *TSVStream {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	s := &TSVStream{r: cr}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenTSV 打开标注文件。
func OpenTSV(path string, opts ...TSVOption) (*TSVStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewTSVStream(f, opts...), nil
}

func (s *TSVStream) Next(ctx context.Context) (core.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return core.Annotation{}, err
	}
	for {
		fields, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			return core.Annotation{}, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return core.Annotation{}, core.Wrapf(core.ErrMalformedRecord, err, "line %d", perr.Line)
			}
			return core.Annotation{}, err
		}
		s.read++
		s.line, _ = s.r.FieldPos(0)
		if s.header && s.read == 1 {
			continue
		}
		return s.parse(fields)
	}
}

func (s *TSVStream) parse(fields []string) (core.Annotation, error) {
	if len(fields) < 3 {
		return core.Annotation{}, core.Errorf(core.ErrMalformedRecord,
			"line %d: want user, item, tag columns, got %d", s.line, len(fields))
	}
	var ids [3]int
	for i, name := range [3]string{"user", "item", "tag"} {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil || v < 0 {
			return core.Annotation{}, core.Wrapf(core.ErrMalformedRecord, err,
				"line %d: bad %s id %q", s.line, name, fields[i])
		}
		ids[i] = v
	}
	a := core.Annotation{User: ids[0], Item: ids[1], Tag: ids[2]}
	if len(fields) > 3 {
		if raw := strings.TrimSpace(fields[3]); raw != "" {
			t, err := dateparse.ParseAny(raw)
			if err != nil {
				return core.Annotation{}, core.Wrapf(core.ErrMalformedRecord, err,
					"line %d: bad date %q", s.line, raw)
			}
			a.Date = t
		}
	}
	return a, nil
}

// Close 关闭底层 reader（如有）。
func (s *TSVStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var _ core.AnnotationStream = (*TSVStream)(nil)
