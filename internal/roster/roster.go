package roster

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

var (
	ErrDegenerateRoster = errors.New("队员名单无法组成合法的分队")
	ErrDuplicateRanger  = errors.New("队员姓名重复")
	ErrInvalidRanger    = errors.New("队员信息不合法")
)

// Ranger 是优化过程中使用的只读队员记录，载入之后不再修改
type Ranger struct {
	Index                    int
	ID                       int64 // 数据库中的 ID，从 CSV 载入时为 0
	Name                     string
	Role                     domain.RangerRole
	Gender                   string
	Certified                bool
	Restricted               bool
	Experience               int
	Unavailable              DaySet
	SameCrewPreferences      []string
	DifferentCrewPreferences []string

	samePreferenceIdx      []int
	differentPreferenceIdx []int
}

// IsLeadership 队长（Leader）和副队长（Boss）都属于分队的领导层
func (r *Ranger) IsLeadership() bool {
	switch r.Role {
	case domain.RangerRoleLeader, domain.RangerRoleBoss:
		return true
	default:
		return false
	}
}

// SamePreferenceIndexes 希望同队的队员下标，名单中不存在的名字已被忽略
func (r *Ranger) SamePreferenceIndexes() []int { return r.samePreferenceIdx }

// DifferentPreferenceIndexes 不希望同队的队员下标
func (r *Ranger) DifferentPreferenceIndexes() []int { return r.differentPreferenceIdx }

type Roster struct {
	season        *calendar.Season
	rangers       []*Ranger
	byName        map[string]int
	leaders       []int
	bosses        []int
	members       []int
	avgExperience float64
}

func New(season *calendar.Season, records []*domain.Ranger) (*Roster, error) {
	r := &Roster{
		season:  season,
		rangers: make([]*Ranger, 0, len(records)),
		byName:  make(map[string]int, len(records)),
	}

	totalExperience := 0
	for i, record := range records {
		ranger, err := newRanger(season, i, record)
		if err != nil {
			return nil, err
		}

		if _, exists := r.byName[ranger.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRanger, ranger.Name)
		}
		r.byName[ranger.Name] = i

		switch ranger.Role {
		case domain.RangerRoleLeader:
			r.leaders = append(r.leaders, i)
		case domain.RangerRoleBoss:
			r.bosses = append(r.bosses, i)
		case domain.RangerRoleMember:
			r.members = append(r.members, i)
		}

		totalExperience += ranger.Experience
		r.rangers = append(r.rangers, ranger)
	}

	if err := r.checkShape(); err != nil {
		return nil, err
	}

	// 名字要在所有队员载入之后才能解析成下标
	for _, ranger := range r.rangers {
		ranger.samePreferenceIdx = r.resolveNames(ranger, ranger.SameCrewPreferences)
		ranger.differentPreferenceIdx = r.resolveNames(ranger, ranger.DifferentCrewPreferences)
	}

	r.avgExperience = Round2(float64(totalExperience) / float64(len(r.rangers)))

	return r, nil
}

func newRanger(season *calendar.Season, index int, record *domain.Ranger) (*Ranger, error) {
	name := strings.TrimSpace(record.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: 第 %d 名队员没有姓名", ErrInvalidRanger, index+1)
	}

	switch record.Role {
	case domain.RangerRoleLeader, domain.RangerRoleBoss, domain.RangerRoleMember:
	default:
		return nil, fmt.Errorf("%w: %s 的角色 %q 无效", ErrInvalidRanger, name, record.Role)
	}

	if record.YearsOfExperience < 0 {
		return nil, fmt.Errorf("%w: %s 的工作年限不能为负数", ErrInvalidRanger, name)
	}

	unavailable, err := UnavailableDays(season, record.StartDate, record.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &Ranger{
		Index:                    index,
		ID:                       record.ID,
		Name:                     name,
		Role:                     record.Role,
		Gender:                   record.Gender,
		Certified:                record.FitnessCertification == domain.NationalCertification,
		Restricted:               record.MixedCrewRestriction != "",
		Experience:               int(record.YearsOfExperience),
		Unavailable:              unavailable,
		SameCrewPreferences:      cleanNames(record.SameCrewPreferences),
		DifferentCrewPreferences: cleanNames(record.DifferentCrewPreferences),
	}, nil
}

// UnavailableDays 根据到岗和离岗日期计算队员缺勤的日期集合：
// 到岗日之前的日期、以及离岗日之后直到赛季结束的日期
func UnavailableDays(season *calendar.Season, startDate, endDate string) (DaySet, error) {
	length := season.Length()
	days := NewDaySet(length)

	if strings.TrimSpace(startDate) != "" {
		start, err := season.DayOffset(startDate)
		if err != nil {
			return nil, err
		}
		for d := 0; d < min(start, length); d++ {
			days.Add(d)
		}
	}

	if strings.TrimSpace(endDate) != "" {
		end, err := season.DayOffset(endDate)
		if err != nil {
			return nil, err
		}
		// 离岗日当天仍然在岗
		for d := max(end+1, 0); d < length; d++ {
			days.Add(d)
		}
	}

	return days, nil
}

func cleanNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			cleaned = append(cleaned, name)
		}
	}
	return cleaned
}

func (r *Roster) resolveNames(ranger *Ranger, names []string) []int {
	idx := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := r.byName[name]
		if !ok {
			slog.Warn("偏好中的队员不存在，将被忽略", "ranger", ranger.Name, "preference", name)
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func (r *Roster) checkShape() error {
	if r.CrewCount() < 1 {
		return fmt.Errorf("%w: 至少需要 4 名队员，当前只有 %d 名", ErrDegenerateRoster, len(r.rangers))
	}

	// 多出来的队员必须能分散到不同的分队中，否则会出现 6 人以上的分队
	if r.OversizedCrews() > r.CrewCount() {
		return fmt.Errorf("%w: %d 名队员无法分成 4 人或 5 人的分队", ErrDegenerateRoster, len(r.rangers))
	}

	leadership := len(r.leaders) + len(r.bosses)
	if leadership == 0 {
		return fmt.Errorf("%w: 名单中没有队长或副队长", ErrDegenerateRoster)
	}
	if leadership < r.CrewCount() {
		return fmt.Errorf("%w: %d 个分队只有 %d 名队长或副队长", ErrDegenerateRoster, r.CrewCount(), leadership)
	}

	return nil
}

func (r *Roster) Len() int                   { return len(r.rangers) }
func (r *Roster) Ranger(i int) *Ranger       { return r.rangers[i] }
func (r *Roster) Rangers() []*Ranger         { return r.rangers }
func (r *Roster) Season() *calendar.Season   { return r.season }
func (r *Roster) SeasonLength() int          { return r.season.Length() }
func (r *Roster) AverageExperience() float64 { return r.avgExperience }
func (r *Roster) Leaders() []int             { return r.leaders }
func (r *Roster) Bosses() []int              { return r.bosses }
func (r *Roster) Members() []int             { return r.members }

func (r *Roster) IndexOf(name string) (int, bool) {
	i, ok := r.byName[name]
	return i, ok
}

// CrewCount 分队数量，每 4 人一队
func (r *Roster) CrewCount() int {
	return len(r.rangers) / 4
}

// OversizedCrews 多出来的人依次并入前几个分队，这些分队为 5 人
func (r *Roster) OversizedCrews() int {
	return len(r.rangers) % 4
}

// CrewSize 返回 ID 为 crewID 的分队应有的人数
func (r *Roster) CrewSize(crewID int) int {
	if crewID <= r.OversizedCrews() {
		return 5
	}
	return 4
}

// Round2 四舍六入五成双地保留两位小数
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
