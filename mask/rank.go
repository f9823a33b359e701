package mask

import "sort"

// Rank 按分数降序取前 k 个
//
// 排序稳定, 同分的结果保持模型返回的先后顺序; 输入为空或 k <= 0 时返回空切片
func Rank(in []Scored, k int) []Scored {
	n := min(max(k, 0), len(in))
	if n == 0 {
		return []Scored{}
	}

	ranked := make([]Scored, len(in))
	copy(ranked, in)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked[:n]
}
