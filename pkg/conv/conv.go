// Package conv 提供 id 切片与数值向量之间的泛型工具，用于替代每个标量方法各写一份的"向量化"包装。
package conv

// MapErr 对 ids 逐元素调用 f，遇到第一个错误即返回。
//
//	probs, err := conv.MapErr(items, est.ProbItem)
//	probs, err := conv.MapErr(items, func(i int) (float64, error) { return est.ProbTagGivenItem(i, tag) })
func MapErr[T, U any](in []T, f func(T) (U, error)) ([]U, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]U, len(in))
	for i, v := range in {
		u, err := f(v)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

// Map 对 in 逐元素调用 f。
func Map[T, U any](in []T, f func(T) U) []U {
	if in == nil {
		return nil
	}
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// Range 返回 [0, n) 的全部 id，即整个取值域。
func Range(n int) []int {
	if n < 0 {
		n = 0
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
