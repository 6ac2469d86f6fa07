// Package freq 从标注流聚合频次索引（Frequency Index）。
//
// 索引在一次遍历后构建完成并保持只读：
//   - TagGlobalFreq[t]     标签 t 的全局出现次数
//   - ItemGlobalCount[i]   物品 i 的出现次数
//   - ItemLocalSum[i]      与物品 i 共现的标签次数之和
//   - ItemTagLocalFreq     稀疏 (i, t) 共现次数
//   - UserTagProfile[u]    用户 u 使用过的去重标签（可截断）
//   - NAnnotations         记录总数 N
//
// 不变量：Σ TagGlobalFreq == N == Σ ItemLocalSum。
package freq

import (
	"math"
	"sort"

	"github.com/rushteam/tagkit/pkg/conv"
)

// Index 是不可变的频次索引。各维度的稠密切片长度为"出现过的最大 id + 1"，
// 因此 id 取值域由语料决定，不同语料之间不保证稳定。
type Index struct {
	TagGlobalFreq   []int64
	ItemGlobalCount []int64
	ItemLocalSum    []int64
	UserTagProfile  [][]int
	NAnnotations    int64

	// itemTags[i] 是物品 i 的稀疏标签计数
	itemTags []map[int]int64
}

func (x *Index) NumItems() int { return len(x.ItemGlobalCount) }
func (x *Index) NumTags() int  { return len(x.TagGlobalFreq) }
func (x *Index) NumUsers() int { return len(x.UserTagProfile) }

// ItemTagLocalFreq 返回 (item, tag) 的共现次数，未共现或越界时为 0。
func (x *Index) ItemTagLocalFreq(item, tag int) int64 {
	if item < 0 || item >= len(x.itemTags) {
		return 0
	}
	return x.itemTags[item][tag]
}

// ItemTags 返回物品的稀疏标签计数（只读，调用方不得修改）。
func (x *Index) ItemTags(item int) map[int]int64 {
	if item < 0 || item >= len(x.itemTags) {
		return nil
	}
	return x.itemTags[item]
}

// DistinctTags 返回与物品共现过的不同标签数。
func (x *Index) DistinctTags(item int) int {
	return len(x.ItemTags(item))
}

// NumPairs 返回非零 (item, tag) 对的数量。
func (x *Index) NumPairs() int {
	n := 0
	for _, m := range x.itemTags {
		n += len(m)
	}
	return n
}

// ValidItems 返回至少有一条标注的物品（升序）。
func (x *Index) ValidItems() []int {
	return nonZero(x.ItemGlobalCount)
}

// ValidTags 返回全局频次大于 0 的标签（升序）。
func (x *Index) ValidTags() []int {
	return nonZero(x.TagGlobalFreq)
}

func nonZero(counts []int64) []int {
	return conv.ConvertSlice(conv.Range(len(counts)), func(id int) (int, bool) {
		return id, counts[id] > 0
	})
}

// ProfileCap 控制用户画像截断。
//   - MaxTags > 0：保留前 MaxTags 个标签
//   - 0 < Fraction <= 1：保留 ceil(Fraction*len) 个标签（至少 1 个）
//   - 都为 0：不截断
//
// 两者同时设置时 MaxTags 优先。
type ProfileCap struct {
	MaxTags  int     `yaml:"max_tags" json:"max_tags" toml:"max_tags"`
	Fraction float64 `yaml:"fraction" json:"fraction" toml:"fraction"`
}

// IsZero 报告是否未设置截断。
func (c ProfileCap) IsZero() bool {
	return c.MaxTags <= 0 && c.Fraction <= 0
}

func (c ProfileCap) limit(n int) int {
	switch {
	case c.MaxTags > 0:
		if c.MaxTags < n {
			return c.MaxTags
		}
		return n
	case c.Fraction > 0 && c.Fraction < 1:
		k := int(math.Ceil(float64(n) * c.Fraction))
		if k < 1 {
			k = 1
		}
		if k > n {
			k = n
		}
		return k
	default:
		return n
	}
}

// profileOf 把用户的标签计数排成画像：按使用次数降序，次数相同按 tag id 升序。
func profileOf(counts map[int]int64, limit ProfileCap) []int {
	tags := make([]int, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		ci, cj := counts[tags[i]], counts[tags[j]]
		if ci != cj {
			return ci > cj
		}
		return tags[i] < tags[j]
	})
	return tags[:limit.limit(len(tags))]
}
