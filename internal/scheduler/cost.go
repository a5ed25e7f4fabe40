package scheduler

import (
	"math"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
)

// 各项惩罚的权重
const (
	preferenceWeight             = 10  // 每个未满足的个人偏好
	leadershipUnderstaffedWeight = 500 // 领导层全部缺勤的每一天
	understaffedWeight           = 100 // 缺勤超过 1 人的每一天
	severelyUnderstaffedWeight   = 200 // 5 人分队缺勤超过 2 人的每一天（与上一项叠加）
	mixedCrewWeight              = 500 // 每个处于混合性别分队中的受限队员
	uncertifiedLeadershipPenalty = 100 // 领导层中没有人持有国家标准认证
	certificationWeight          = 50  // 持证人数每比要求少一人
	requiredCertified            = 4
	experienceWeight             = 100
)

// crewScore 单个分队的惩罚，除平均经验外都是整数
type crewScore struct {
	preference    int
	understaffing int
	mixedCrew     int
	certification int
	avgExperience float64
}

func (c crewScore) penalty() int {
	return c.preference + c.understaffing + c.mixedCrew + c.certification
}

// Evaluator 计算一个分配方案的代价，不会修改名单和方案
type Evaluator struct {
	roster *roster.Roster
}

func NewEvaluator(r *roster.Roster) *Evaluator {
	return &Evaluator{roster: r}
}

// Evaluate 返回分配方案的总代价（四舍五入到整数）
func (e *Evaluator) Evaluate(a roster.Assignment) int {
	crews := e.roster.Crews(a)
	scores := make([]crewScore, len(crews))
	for i, crew := range crews {
		scores[i] = e.scoreCrew(crew)
	}
	return roundCost(e.total(scores))
}

// Explain 返回代价的组成
func (e *Evaluator) Explain(a roster.Assignment) *Breakdown {
	crews := e.roster.Crews(a)
	scores := make([]crewScore, len(crews))
	b := &Breakdown{
		Crews: make([]CrewBreakdown, len(crews)),
	}

	for i, crew := range crews {
		scores[i] = e.scoreCrew(crew)
		b.Preference += scores[i].preference
		b.Understaffing += scores[i].understaffing
		b.MixedCrew += scores[i].mixedCrew
		b.Certification += scores[i].certification
		b.Crews[i] = CrewBreakdown{
			CrewID:            i + 1,
			Rangers:           crew,
			Preference:        scores[i].preference,
			Understaffing:     scores[i].understaffing,
			MixedCrew:         scores[i].mixedCrew,
			Certification:     scores[i].certification,
			AverageExperience: scores[i].avgExperience,
		}
	}

	b.Experience = e.experienceTerm(scores)
	b.Total = roundCost(e.total(scores))

	return b
}

// total 未取整的总代价，只在最后一步取整
func (e *Evaluator) total(scores []crewScore) float64 {
	penalty := 0
	for _, s := range scores {
		penalty += s.penalty()
	}
	return float64(penalty) + e.experienceTerm(scores)
}

// experienceTerm 各分队平均经验与全体平均经验之差的平方的均值，乘以权重
func (e *Evaluator) experienceTerm(scores []crewScore) float64 {
	if len(scores) == 0 {
		return 0
	}

	base := e.roster.AverageExperience()
	sum := 0.0
	for _, s := range scores {
		diff := s.avgExperience - base
		sum += diff * diff
	}
	return sum / float64(len(scores)) * experienceWeight
}

func (e *Evaluator) scoreCrew(crew []int) crewScore {
	leadership := e.leadership(crew)

	return crewScore{
		preference:    e.preferencePenalty(crew),
		understaffing: e.understaffingPenalty(crew, leadership),
		mixedCrew:     e.mixedCrewPenalty(crew),
		certification: e.certificationPenalty(crew, leadership),
		avgExperience: e.averageExperience(crew),
	}
}

func (e *Evaluator) leadership(crew []int) []int {
	leadership := make([]int, 0, 2)
	for _, idx := range crew {
		if e.roster.Ranger(idx).IsLeadership() {
			leadership = append(leadership, idx)
		}
	}
	return leadership
}

// preferencePenalty 有"希望同队"偏好但一个都没满足的队员各算一次，
// 每个出现在同一分队中的"不希望同队"的名字各算一次
func (e *Evaluator) preferencePenalty(crew []int) int {
	violations := 0

	for _, idx := range crew {
		ranger := e.roster.Ranger(idx)

		if len(ranger.SameCrewPreferences) > 0 && !containsAny(crew, ranger.SamePreferenceIndexes()) {
			violations++
		}

		for _, other := range ranger.DifferentPreferenceIndexes() {
			if contains(crew, other) {
				violations++
			}
		}
	}

	return violations * preferenceWeight
}

// understaffingPenalty 领导层至少要有一人在岗；4 人分队最多 1 人缺勤，5 人分队最多 2 人缺勤
func (e *Evaluator) understaffingPenalty(crew []int, leadership []int) int {
	cost := countOverlappingDays(e.roster, leadership, 0) * leadershipUnderstaffedWeight

	switch len(crew) {
	case 4:
		cost += countOverlappingDays(e.roster, crew, 1) * understaffedWeight
	case 5:
		cost += countOverlappingDays(e.roster, crew, 1) * understaffedWeight
		cost += countOverlappingDays(e.roster, crew, 2) * severelyUnderstaffedWeight
	}

	return cost
}

func (e *Evaluator) mixedCrewPenalty(crew []int) int {
	if !e.isMixedGender(crew) {
		return 0
	}

	violations := 0
	for _, idx := range crew {
		if e.roster.Ranger(idx).Restricted {
			violations++
		}
	}
	return violations * mixedCrewWeight
}

func (e *Evaluator) isMixedGender(crew []int) bool {
	for _, idx := range crew[min(1, len(crew)):] {
		if e.roster.Ranger(idx).Gender != e.roster.Ranger(crew[0]).Gender {
			return true
		}
	}
	return false
}

// certificationPenalty 领导层中至少一人、全队至少 4 人持有国家标准认证
func (e *Evaluator) certificationPenalty(crew []int, leadership []int) int {
	leaderCertified := false
	for _, idx := range leadership {
		if e.roster.Ranger(idx).Certified {
			leaderCertified = true
			break
		}
	}
	if !leaderCertified {
		return uncertifiedLeadershipPenalty
	}

	certified := 0
	for _, idx := range crew {
		if e.roster.Ranger(idx).Certified {
			certified++
		}
	}
	if certified < requiredCertified {
		return (requiredCertified - certified) * certificationWeight
	}

	return 0
}

func (e *Evaluator) averageExperience(crew []int) float64 {
	if len(crew) == 0 {
		return e.roster.AverageExperience()
	}

	total := 0
	for _, idx := range crew {
		total += e.roster.Ranger(idx).Experience
	}
	return roster.Round2(float64(total) / float64(len(crew)))
}

func roundCost(cost float64) int {
	return int(math.RoundToEven(cost))
}
