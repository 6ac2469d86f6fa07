package dsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/tagkit/freq"
	"github.com/rushteam/tagkit/internal/fixture"
)

func buildIndex(t *testing.T) *freq.Index {
	t.Helper()
	idx, err := freq.Build(context.Background(), fixture.Stream())
	require.NoError(t, err)
	return idx
}

func TestItemFilter(t *testing.T) {
	idx := buildIndex(t)

	tests := []struct {
		name string
		expr string
		want []int
	}{
		{name: "empty selects all", expr: "", want: []int{0, 1, 2, 3, 4}},
		{name: "count and distinct", expr: "item.count >= 2 && item.distinct_tags > 1", want: []int{0, 1}},
		{name: "by id", expr: "item.id in [1, 3]", want: []int{1, 3}},
		{name: "local sum", expr: "item.local_sum == 1", want: []int{2, 3, 4}},
		{name: "none", expr: "item.count > 100", want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewItemFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, f.Expr())
			got, err := f.SelectItems(idx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagFilter(t *testing.T) {
	idx := buildIndex(t)

	f, err := NewTagFilter("tag.freq >= 2")
	require.NoError(t, err)
	got, err := f.SelectTags(idx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)

	all, err := NewTagFilter("")
	require.NoError(t, err)
	got, err = all.SelectTags(idx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}

func TestFilter_Errors(t *testing.T) {
	_, err := NewItemFilter("item.count >=")
	assert.Error(t, err)

	_, err = NewTagFilter("1 + 2")
	assert.Error(t, err)

	// 动态类型在运行期才能发现不是布尔值
	f, err := NewItemFilter("item.id")
	require.NoError(t, err)
	_, err = f.SelectItems(buildIndex(t))
	assert.Error(t, err)
}
