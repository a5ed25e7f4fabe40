package roster

import "math/bits"

// DaySet 赛季内的日期集合，第 d 位为 1 表示第 d 天在集合中
type DaySet []uint64

func NewDaySet(seasonLength int) DaySet {
	return make(DaySet, (seasonLength+63)/64)
}

func (s DaySet) Add(day int) {
	s[day/64] |= 1 << (uint(day) % 64)
}

func (s DaySet) Has(day int) bool {
	if day < 0 || day/64 >= len(s) {
		return false
	}
	return s[day/64]&(1<<(uint(day)%64)) != 0
}

func (s DaySet) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Days 按升序返回集合中的所有日期
func (s DaySet) Days() []int {
	days := make([]int, 0, s.Len())
	for i, w := range s {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			days = append(days, i*64+b)
			w &= w - 1
		}
	}
	return days
}
