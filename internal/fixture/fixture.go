// Package fixture 提供测试共用的小型标注语料。
package fixture

import (
	"math/rand"
	"time"

	"github.com/rushteam/tagkit/core"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Annotations 返回 10 条标注：5 个物品、6 个标签、3 个用户。
// 物品 0 占一半标注，因此 P(item 0) == 0.5。
func Annotations() []core.Annotation {
	rows := [][3]int{
		{0, 0, 0},
		{0, 0, 1},
		{1, 0, 0},
		{1, 0, 2},
		{2, 0, 3},
		{0, 1, 1},
		{1, 2, 2},
		{2, 3, 4},
		{2, 4, 5},
		{0, 1, 0},
	}
	out := make([]core.Annotation, len(rows))
	for i, r := range rows {
		out[i] = core.Annotation{User: r[0], Item: r[1], Tag: r[2], Date: epoch.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

// Stream 返回 Annotations 的一次性标注流。
func Stream() core.AnnotationStream {
	return core.NewSliceStream(Annotations())
}

// Random 生成随机小语料，用于性质测试。
func Random(rng *rand.Rand, n, users, items, tags int) []core.Annotation {
	out := make([]core.Annotation, n)
	for i := range out {
		out[i] = core.Annotation{
			User: rng.Intn(users),
			Item: rng.Intn(items),
			Tag:  rng.Intn(tags),
			Date: epoch.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}
