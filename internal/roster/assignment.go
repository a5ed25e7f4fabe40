package roster

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

// Assignment 下标为队员在名单中的位置，值为分队 ID（从 1 开始）
type Assignment []int

func (a Assignment) Clone() Assignment {
	c := make(Assignment, len(a))
	copy(c, a)
	return c
}

// RoleCount 一个分队中各角色的人数
type RoleCount struct {
	Leaders int `json:"leaders"`
	Bosses  int `json:"bosses"`
	Members int `json:"members"`
}

func (c *RoleCount) add(role domain.RangerRole) {
	switch role {
	case domain.RangerRoleLeader:
		c.Leaders++
	case domain.RangerRoleBoss:
		c.Bosses++
	case domain.RangerRoleMember:
		c.Members++
	}
}

func (c RoleCount) of(role domain.RangerRole) int {
	switch role {
	case domain.RangerRoleLeader:
		return c.Leaders
	case domain.RangerRoleBoss:
		return c.Bosses
	default:
		return c.Members
	}
}

func (c RoleCount) Leadership() int {
	return c.Leaders + c.Bosses
}

// Crews 返回每个分队的成员下标（升序），第 i 项对应分队 i+1。
// 超出 [1, CrewCount] 的分队 ID 会被忽略，由调用方负责校验。
func (r *Roster) Crews(a Assignment) [][]int {
	crews := make([][]int, r.CrewCount())
	for i := range crews {
		crews[i] = make([]int, 0, r.CrewSize(i+1))
	}
	for idx, crewID := range a {
		if crewID < 1 || crewID > len(crews) {
			continue
		}
		crews[crewID-1] = append(crews[crewID-1], idx)
	}
	return crews
}

// RoleCounts 返回每个分队的角色分布，第 i 项对应分队 i+1
func (r *Roster) RoleCounts(a Assignment) []RoleCount {
	counts := make([]RoleCount, r.CrewCount())
	for idx, crewID := range a {
		if crewID < 1 || crewID > len(counts) {
			continue
		}
		counts[crewID-1].add(r.rangers[idx].Role)
	}
	return counts
}

// InitialAssignment 按角色分别、均匀地把队员分配到各个分队：
// 先分队长，再分副队长，最后分普通队员。每名队员被放入仍有空位的分队中
// 领导层人数最少（仅对队长和副队长）、该角色人数最少、ID 最小的那个。
// 各角色名单会先用 rng 打乱，使初始解带有随机性。
func (r *Roster) InitialAssignment(rng *rand.Rand) Assignment {
	a := make(Assignment, len(r.rangers))
	crewCount := r.CrewCount()

	sizes := make([]int, crewCount)
	counts := make([]RoleCount, crewCount)

	for _, group := range [][]int{r.leaders, r.bosses, r.members} {
		shuffled := append([]int{}, group...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		for _, idx := range shuffled {
			ranger := r.rangers[idx]
			best := -1
			for c := 0; c < crewCount; c++ {
				if sizes[c] >= r.CrewSize(c+1) {
					continue
				}
				if best == -1 || r.preferCrew(ranger, counts[c], counts[best]) {
					best = c
				}
			}

			a[idx] = best + 1
			sizes[best]++
			counts[best].add(ranger.Role)
		}
	}

	return a
}

// preferCrew 判断对于 ranger 来说，分队 c 是否比当前选中的分队 best 更合适
func (r *Roster) preferCrew(ranger *Ranger, c, best RoleCount) bool {
	if ranger.IsLeadership() && c.Leadership() != best.Leadership() {
		return c.Leadership() < best.Leadership()
	}
	return c.of(ranger.Role) < best.of(ranger.Role)
}
