package scheduler

import (
	"errors"
	"math/rand"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
)

// 找不到同角色交换对象时，整个交换最多重新抽取的次数
const maxNeighborAttempts = 64

var ErrEmptyCrewPartner = errors.New("目标分队中没有相同角色的队员可供交换")

// Move 一次交换：First 从 FirstCrew 调到 SecondCrew，Second 反之
type Move struct {
	First      int
	Second     int
	FirstCrew  int
	SecondCrew int
}

// proposeSwap 在两个不同的分队之间随机选出一对角色相同的队员：
//  1. 随机选一个源分队，再从中随机选一名队员
//  2. 在其余分队中随机选一个目标分队
//  3. 在目标分队中随机选一名与之角色相同的队员
//
// 目标分队中没有相同角色的队员时重新抽取，超过 maxNeighborAttempts 次返回 ErrEmptyCrewPartner
func proposeSwap(rng *rand.Rand, r *roster.Roster, crews [][]int) (Move, error) {
	if len(crews) < 2 {
		return Move{}, ErrEmptyCrewPartner
	}

	for attempt := 0; attempt < maxNeighborAttempts; attempt++ {
		src := rng.Intn(len(crews))
		if len(crews[src]) == 0 {
			continue
		}
		first := crews[src][rng.Intn(len(crews[src]))]

		dst := rng.Intn(len(crews) - 1)
		if dst >= src {
			dst++
		}

		role := r.Ranger(first).Role
		partners := 0
		for _, idx := range crews[dst] {
			if r.Ranger(idx).Role == role {
				partners++
			}
		}
		if partners == 0 {
			continue
		}

		pick := rng.Intn(partners)
		for _, idx := range crews[dst] {
			if r.Ranger(idx).Role != role {
				continue
			}
			if pick == 0 {
				return Move{First: first, Second: idx, FirstCrew: src + 1, SecondCrew: dst + 1}, nil
			}
			pick--
		}
	}

	return Move{}, ErrEmptyCrewPartner
}

// Neighbor 返回交换一对同角色队员之后的新方案，原方案不会被修改
func Neighbor(rng *rand.Rand, r *roster.Roster, a roster.Assignment) (roster.Assignment, Move, error) {
	move, err := proposeSwap(rng, r, r.Crews(a))
	if err != nil {
		return nil, Move{}, err
	}

	next := a.Clone()
	next[move.First], next[move.Second] = next[move.Second], next[move.First]

	return next, move, nil
}
