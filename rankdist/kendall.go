// Package rankdist 比较两个基于价值的排名，用于评估。
package rankdist

import (
	"math"
	"sort"

	"github.com/rushteam/tagkit/core"
)

// DefaultTopK 是默认比较的前 k 名。
const DefaultTopK = 10

// KendallTau 计算 Fagin–Kumar–Sivakumar top-k 距离 K^(p)，归一化到 [0, 1]。
//
// 两个列表各取前 k 个元素，按位置赋排名 1..k；不在某列表前 k 名中的元素在该列表中视为排在第 k+1 位。
// 对两个前 k 集合并集中的每一对 (i, j)：
//   - 两者都出现在两个列表中：次序相反计 1
//   - 两者都在一个列表中、另一个列表只包含其中一个：若该列表的次序与另一个列表相反计 1
//   - i 只在一个列表中、j 只在另一个列表中：计 1
//   - 两者都只在同一个列表中：计 p
//
// 结果除以最大可能距离 k²(p+1) - kp。
func KendallTau(a, b []int, k int, p float64) (float64, error) {
	if k <= 0 {
		return 0, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rankdist: k must be positive")
	}
	if p < 0 || p > 1 {
		return 0, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rankdist: p must be in [0, 1]")
	}
	ra, err := topKRanks(a, k)
	if err != nil {
		return 0, err
	}
	rb, err := topKRanks(b, k)
	if err != nil {
		return 0, err
	}

	union := make([]int, 0, len(ra)+len(rb))
	for e := range ra {
		union = append(union, e)
	}
	for e := range rb {
		if _, ok := ra[e]; !ok {
			union = append(union, e)
		}
	}

	absent := k + 1
	rank := func(r map[int]int, e int) int {
		if v, ok := r[e]; ok {
			return v
		}
		return absent
	}

	var d float64
	for x := 0; x < len(union); x++ {
		for y := x + 1; y < len(union); y++ {
			i, j := union[x], union[y]
			_, iA := ra[i]
			_, jA := ra[j]
			_, iB := rb[i]
			_, jB := rb[j]

			if (iA && jA && !iB && !jB) || (iB && jB && !iA && !jA) {
				d += p
				continue
			}
			// 其余情况：缺席元素排在 k+1 位，次序相反即计 1；两者在同一列表都缺席的情况已在上面处理
			da := rank(ra, i) - rank(ra, j)
			db := rank(rb, i) - rank(rb, j)
			if da*db < 0 {
				d++
			}
		}
	}

	kf := float64(k)
	return d / (kf*kf*(p+1) - kf*p), nil
}

// topKRanks 返回前 k 个元素的排名（从 1 开始）；列表内元素重复时报错。
func topKRanks(list []int, k int) (map[int]int, error) {
	n := min(k, len(list))
	ranks := make(map[int]int, n)
	for pos := 0; pos < n; pos++ {
		e := list[pos]
		if _, dup := ranks[e]; dup {
			return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rankdist: duplicate element in ranking")
		}
		ranks[e] = pos + 1
	}
	return ranks, nil
}

// RankDescending 按 values 降序排列 ids（NaN 排在最后，价值相同按 id 升序），返回新切片。
func RankDescending(ids []int, values []float64) []int {
	type pair struct {
		id int
		v  float64
	}
	pairs := make([]pair, len(ids))
	for i, id := range ids {
		pairs[i] = pair{id: id, v: values[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		vi, vj := pairs[i].v, pairs[j].v
		ni, nj := math.IsNaN(vi), math.IsNaN(vj)
		switch {
		case ni != nj:
			return nj
		case ni && nj, vi == vj:
			return pairs[i].id < pairs[j].id
		default:
			return vi > vj
		}
	})
	out := make([]int, len(pairs))
	for i, pr := range pairs {
		out[i] = pr.id
	}
	return out
}
