package domain

import "time"

type RangerRole string

const (
	RangerRoleLeader RangerRole = "Leader"
	RangerRoleBoss   RangerRole = "Boss"
	RangerRoleMember RangerRole = "Member"
)

// NationalCertification 国家标准体能认证在原始表格中的取值
const NationalCertification = "National"

type Ranger struct {
	ID                       int64      `json:"id"`
	CrewPlanID               int64      `json:"crewPlanID"`
	Name                     string     `json:"name"`
	Role                     RangerRole `json:"role"`
	Gender                   string     `json:"gender"`
	YearsOfExperience        int32      `json:"yearsOfExperience"`
	FitnessCertification     string     `json:"fitnessCertification"`
	MixedCrewRestriction     string     `json:"mixedCrewRestriction"` // 为空表示没有限制
	StartDate                string     `json:"startDate"`            // 为空表示从赛季开始就能到岗
	EndDate                  string     `json:"endDate"`              // 为空表示一直工作到赛季结束
	SameCrewPreferences      []string   `json:"sameCrewPreferences"`
	DifferentCrewPreferences []string   `json:"differentCrewPreferences"`
	CreatedAt                time.Time  `json:"createdAt"`
	Version                  int32      `json:"-"`
}
