// Package dsl 用 CEL (Common Expression Language) 表达式选择候选子集（gamma 集合）。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/tagkit/freq"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("tag", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Filter 是编译好的选择表达式，可重复使用、并发安全。
//
// 物品表达式可用的变量：
//   - item.id / item.count / item.local_sum / item.distinct_tags
//
// 标签表达式可用的变量：
//   - tag.id / tag.freq
//
// 示例：
//   - `item.count >= 2 && item.distinct_tags > 1` → 至少两条标注且不止一个标签的物品
//   - `tag.freq >= 3` → 常用标签
type Filter struct {
	expr string
	prg  cel.Program // nil 表示选择全部
}

// NewItemFilter 编译物品选择表达式；空表达式选择全部有效物品。
func NewItemFilter(expr string) (*Filter, error) {
	return compile(expr)
}

// NewTagFilter 编译标签选择表达式；空表达式选择全部有效标签。
func NewTagFilter(expr string) (*Filter, error) {
	return compile(expr)
}

func compile(expr string) (*Filter, error) {
	f := &Filter{expr: expr}
	if expr == "" {
		return f, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return boolean, got %v", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	f.prg = prg
	return f, nil
}

// Expr 返回原始表达式。
func (f *Filter) Expr() string { return f.expr }

func (f *Filter) match(input map[string]any) (bool, error) {
	if f.prg == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// SelectItems 返回满足表达式的有效物品（升序）。
func (f *Filter) SelectItems(idx *freq.Index) ([]int, error) {
	valid := idx.ValidItems()
	out := make([]int, 0, len(valid))
	for _, item := range valid {
		ok, err := f.match(map[string]any{
			"item": map[string]any{
				"id":            int64(item),
				"count":         idx.ItemGlobalCount[item],
				"local_sum":     idx.ItemLocalSum[item],
				"distinct_tags": int64(idx.DistinctTags(item)),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", item, err)
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// SelectTags 返回满足表达式的有效标签（升序）。
func (f *Filter) SelectTags(idx *freq.Index) ([]int, error) {
	valid := idx.ValidTags()
	out := make([]int, 0, len(valid))
	for _, tag := range valid {
		ok, err := f.match(map[string]any{
			"tag": map[string]any{
				"id":   int64(tag),
				"freq": idx.TagGlobalFreq[tag],
			},
		})
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", tag, err)
		}
		if ok {
			out = append(out, tag)
		}
	}
	return out, nil
}
