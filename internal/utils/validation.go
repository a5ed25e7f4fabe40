package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
)

func ValidateCrewPlanSeason(plan *domain.CrewPlan) error {
	if _, err := calendar.NewSeason(plan.SeasonStart, plan.SeasonEnd); err != nil {
		return fmt.Errorf("赛季时间不合法: %w", err)
	}
	return nil
}

func ValidateRanger(ranger *domain.Ranger, season *calendar.Season) error {
	if strings.TrimSpace(ranger.Name) == "" {
		return errors.New("队员姓名不能为空")
	}

	switch ranger.Role {
	case domain.RangerRoleLeader, domain.RangerRoleBoss, domain.RangerRoleMember:
	default:
		return fmt.Errorf("队员 %s 的角色 %q 不合法", ranger.Name, ranger.Role)
	}

	if ranger.YearsOfExperience < 0 {
		return fmt.Errorf("队员 %s 的工作年限不能为负数", ranger.Name)
	}

	var start, end int
	var err error

	hasStart := strings.TrimSpace(ranger.StartDate) != ""
	hasEnd := strings.TrimSpace(ranger.EndDate) != ""

	if hasStart {
		if start, err = season.DayOffset(ranger.StartDate); err != nil {
			return fmt.Errorf("队员 %s 的到岗日期不合法: %w", ranger.Name, err)
		}
		if start < 0 || start >= season.Length() {
			return fmt.Errorf("队员 %s 的到岗日期不在赛季 %s - %s 之内", ranger.Name, season.Start(), season.End())
		}
	}
	if hasEnd {
		if end, err = season.DayOffset(ranger.EndDate); err != nil {
			return fmt.Errorf("队员 %s 的离岗日期不合法: %w", ranger.Name, err)
		}
		if end < 0 || end >= season.Length() {
			return fmt.Errorf("队员 %s 的离岗日期不在赛季 %s - %s 之内", ranger.Name, season.Start(), season.End())
		}
	}
	if hasStart && hasEnd && end < start {
		return fmt.Errorf("队员 %s 的离岗日期不能早于到岗日期", ranger.Name)
	}

	for _, name := range ranger.SameCrewPreferences {
		if strings.TrimSpace(name) == ranger.Name {
			return fmt.Errorf("队员 %s 不能把自己列为同队偏好", ranger.Name)
		}
	}
	for _, name := range ranger.DifferentCrewPreferences {
		if strings.TrimSpace(name) == ranger.Name {
			return fmt.Errorf("队员 %s 不能把自己列为异队偏好", ranger.Name)
		}
	}

	return nil
}

// ValidateCrewAssignmentWithRoster 检查分配方案是否覆盖所有队员、分队人数是否符合 4/5 人的划分，
// 以及每个分队是否都有领导
func ValidateCrewAssignmentWithRoster(a roster.Assignment, r *roster.Roster) error {
	if len(a) != r.Len() {
		return fmt.Errorf("分配方案包含 %d 名队员，名单中有 %d 名", len(a), r.Len())
	}

	for idx, crewID := range a {
		if crewID < 1 || crewID > r.CrewCount() {
			return fmt.Errorf("队员 %s 的分队 %d 不存在", r.Ranger(idx).Name, crewID)
		}
	}

	for i, crew := range r.Crews(a) {
		if len(crew) != r.CrewSize(i+1) {
			return fmt.Errorf("分队 %d 应有 %d 人，实际 %d 人", i+1, r.CrewSize(i+1), len(crew))
		}
	}

	for i, cnt := range r.RoleCounts(a) {
		if cnt.Leadership() == 0 {
			return fmt.Errorf("分队 %d 没有队长或副队长", i+1)
		}
	}

	return nil
}

// ValidateRoleBalance 检查两个方案中每个分队的角色分布是否完全一致
func ValidateRoleBalance(r *roster.Roster, before, after roster.Assignment) error {
	b := r.RoleCounts(before)
	a := r.RoleCounts(after)

	for i := range b {
		if b[i] != a[i] {
			return fmt.Errorf("分队 %d 的角色分布从 %+v 变成了 %+v", i+1, b[i], a[i])
		}
	}

	return nil
}
