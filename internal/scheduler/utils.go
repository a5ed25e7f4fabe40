package scheduler

import (
	"math/bits"
	"slices"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
)

// countOverlappingDays 统计赛季中满足条件的天数：
//   - n == 0 时，rangers 中所有人都缺勤（rangers 为空时每一天都算）
//   - n > 0 时，缺勤人数严格大于 n
//
// 每一天按位并行计数，atLeast[k] 的第 d 位表示第 d 天至少有 k+1 人缺勤
func countOverlappingDays(r *roster.Roster, rangers []int, n int) int {
	length := r.SeasonLength()
	words := (length + 63) / 64
	days := 0

	var buf [8]uint64
	atLeast := buf[:]
	if n+1 > len(buf) {
		atLeast = make([]uint64, n+1)
	}
	atLeast = atLeast[:n+1]

	for w := 0; w < words; w++ {
		valid := ^uint64(0)
		if rest := length - w*64; rest < 64 {
			valid = (1 << uint(rest)) - 1
		}

		if n == 0 {
			all := valid
			for _, idx := range rangers {
				all &= r.Ranger(idx).Unavailable[w]
			}
			days += bits.OnesCount64(all)
			continue
		}

		clear(atLeast)
		for _, idx := range rangers {
			x := r.Ranger(idx).Unavailable[w]
			for k := n; k > 0; k-- {
				atLeast[k] |= atLeast[k-1] & x
			}
			atLeast[0] |= x
		}
		days += bits.OnesCount64(atLeast[n] & valid)
	}

	return days
}

func contains(crew []int, idx int) bool {
	return slices.Contains(crew, idx)
}

func containsAny(crew []int, candidates []int) bool {
	for _, idx := range candidates {
		if slices.Contains(crew, idx) {
			return true
		}
	}
	return false
}

// replaceMember 返回把 out 换成 in 之后的新分队（保持升序），不修改原切片
func replaceMember(crew []int, out, in int) []int {
	next := make([]int, 0, len(crew))
	for _, idx := range crew {
		if idx != out {
			next = append(next, idx)
		}
	}
	pos, _ := slices.BinarySearch(next, in)
	return slices.Insert(next, pos, in)
}
