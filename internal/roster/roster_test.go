package roster

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

func testSeason(t *testing.T) *calendar.Season {
	t.Helper()
	season, err := calendar.NewSeason("May 1", "August 31")
	require.NoError(t, err)
	return season
}

// buildRecords 按给定的角色人数生成没有任何限制的队员
func buildRecords(leaders, bosses, members int) []*domain.Ranger {
	records := make([]*domain.Ranger, 0, leaders+bosses+members)
	add := func(n int, role domain.RangerRole) {
		for i := 0; i < n; i++ {
			records = append(records, &domain.Ranger{
				Name:                 fmt.Sprintf("%s-%d", role, i),
				Role:                 role,
				Gender:               "F",
				YearsOfExperience:    int32(i + 1),
				FitnessCertification: domain.NationalCertification,
			})
		}
	}
	add(leaders, domain.RangerRoleLeader)
	add(bosses, domain.RangerRoleBoss)
	add(members, domain.RangerRoleMember)
	return records
}

func TestUnavailableDays(t *testing.T) {
	season := testSeason(t)

	// 只有到岗日期：到岗日之前都缺勤
	days, err := UnavailableDays(season, "May 4", "")
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, days.Days())

	// 只有离岗日期：离岗日之后到赛季结束都缺勤
	days, err = UnavailableDays(season, "", "August 29")
	require.NoError(t, err)
	require.Equal(t, []int{121, 122}, days.Days())

	// 两者都有
	days, err = UnavailableDays(season, "May 2", "August 30")
	require.NoError(t, err)
	require.Equal(t, []int{0, 122}, days.Days())

	// 都没有
	days, err = UnavailableDays(season, "", " ")
	require.NoError(t, err)
	require.Zero(t, days.Len())

	// 赛季外的日期会被截断
	days, err = UnavailableDays(season, "April 1", "September 30")
	require.NoError(t, err)
	require.Zero(t, days.Len())

	_, err = UnavailableDays(season, "Mayday", "")
	require.ErrorIs(t, err, calendar.ErrInvalidDateFormat)
}

func TestNewRoster(t *testing.T) {
	records := buildRecords(2, 2, 5)
	records[4].SameCrewPreferences = []string{" Leader-0", "", "Nobody"}
	records[5].DifferentCrewPreferences = []string{"Boss-1"}
	records[6].FitnessCertification = "Provincial"
	records[7].MixedCrewRestriction = "yes"

	r, err := New(testSeason(t), records)
	require.NoError(t, err)

	require.Equal(t, 9, r.Len())
	require.Equal(t, 2, r.CrewCount())
	require.Equal(t, 1, r.OversizedCrews())
	require.Equal(t, 5, r.CrewSize(1))
	require.Equal(t, 4, r.CrewSize(2))
	require.Equal(t, []int{0, 1}, r.Leaders())
	require.Equal(t, []int{2, 3}, r.Bosses())
	require.Equal(t, []int{4, 5, 6, 7, 8}, r.Members())

	// 经验: 1,2,1,2,1,2,3,4,5 -> 21/9 = 2.333...
	require.Equal(t, 2.33, r.AverageExperience())

	require.Equal(t, []string{"Leader-0", "Nobody"}, r.Ranger(4).SameCrewPreferences)
	require.Equal(t, []int{0}, r.Ranger(4).SamePreferenceIndexes())
	require.Equal(t, []int{3}, r.Ranger(5).DifferentPreferenceIndexes())
	require.False(t, r.Ranger(6).Certified)
	require.True(t, r.Ranger(7).Restricted)
	require.True(t, r.Ranger(0).IsLeadership())
	require.False(t, r.Ranger(8).IsLeadership())

	idx, ok := r.IndexOf("Boss-0")
	require.True(t, ok)
	require.Equal(t, 2, idx)
}

func TestNewRosterRejects(t *testing.T) {
	season := testSeason(t)

	_, err := New(season, buildRecords(1, 1, 1))
	require.ErrorIs(t, err, ErrDegenerateRoster)

	_, err = New(season, buildRecords(0, 0, 8))
	require.ErrorIs(t, err, ErrDegenerateRoster)

	// 3 个分队但只有 2 名领导
	_, err = New(season, buildRecords(1, 1, 10))
	require.ErrorIs(t, err, ErrDegenerateRoster)

	// 6 人或 7 人无法组成 4 人或 5 人的分队
	_, err = New(season, buildRecords(1, 1, 4))
	require.ErrorIs(t, err, ErrDegenerateRoster)
	_, err = New(season, buildRecords(1, 1, 5))
	require.ErrorIs(t, err, ErrDegenerateRoster)

	// 5 人和 9 人恰好可以组成 5 人分队
	r, err := New(season, buildRecords(1, 0, 4))
	require.NoError(t, err)
	require.Equal(t, 1, r.CrewCount())
	require.Equal(t, 5, r.CrewSize(1))

	r, err = New(season, buildRecords(1, 1, 7))
	require.NoError(t, err)
	require.Equal(t, 2, r.CrewCount())
	require.Equal(t, []int{5, 4}, []int{r.CrewSize(1), r.CrewSize(2)})

	records := buildRecords(2, 2, 4)
	records[1].Name = records[0].Name
	_, err = New(season, records)
	require.ErrorIs(t, err, ErrDuplicateRanger)

	records = buildRecords(2, 2, 4)
	records[3].Role = "Cook"
	_, err = New(season, records)
	require.ErrorIs(t, err, ErrInvalidRanger)

	records = buildRecords(2, 2, 4)
	records[3].YearsOfExperience = -1
	_, err = New(season, records)
	require.ErrorIs(t, err, ErrInvalidRanger)

	records = buildRecords(2, 2, 4)
	records[3].StartDate = "Junly 3"
	_, err = New(season, records)
	require.ErrorIs(t, err, calendar.ErrInvalidDateFormat)
}

func TestInitialAssignmentBalancesRoles(t *testing.T) {
	cases := []struct {
		leaders, bosses, members int
	}{
		{2, 2, 4},
		{3, 3, 7},
		{5, 5, 13},
		{2, 6, 12},
		{10, 0, 30},
	}

	for _, c := range cases {
		r, err := New(testSeason(t), buildRecords(c.leaders, c.bosses, c.members))
		require.NoError(t, err)

		for seed := int64(0); seed < 5; seed++ {
			a := r.InitialAssignment(rand.New(rand.NewSource(seed)))
			require.Len(t, a, r.Len())

			crews := r.Crews(a)
			require.Len(t, crews, r.CrewCount())
			for i, crew := range crews {
				require.Len(t, crew, r.CrewSize(i+1))
			}

			// 每个分队都至少有一名领导，且各角色人数最多相差 1
			counts := r.RoleCounts(a)
			minL, maxL := counts[0].Leaders, counts[0].Leaders
			for _, cnt := range counts {
				require.GreaterOrEqual(t, cnt.Leadership(), 1)
				minL = min(minL, cnt.Leaders)
				maxL = max(maxL, cnt.Leaders)
			}
			require.LessOrEqual(t, maxL-minL, 1)
		}
	}
}

func TestInitialAssignmentOneLeaderOneBoss(t *testing.T) {
	r, err := New(testSeason(t), buildRecords(4, 4, 8))
	require.NoError(t, err)

	a := r.InitialAssignment(rand.New(rand.NewSource(42)))
	for _, cnt := range r.RoleCounts(a) {
		require.Equal(t, RoleCount{Leaders: 1, Bosses: 1, Members: 2}, cnt)
	}
}

func TestDaySet(t *testing.T) {
	s := NewDaySet(130)
	require.Len(t, s, 3)

	s.Add(0)
	s.Add(64)
	s.Add(129)
	s.Add(64)

	require.True(t, s.Has(64))
	require.False(t, s.Has(63))
	require.False(t, s.Has(-1))
	require.False(t, s.Has(500))
	require.Equal(t, 3, s.Len())
	require.Equal(t, []int{0, 64, 129}, s.Days())
}

func TestAssignmentClone(t *testing.T) {
	a := Assignment{1, 2, 1, 2}
	c := a.Clone()
	c[0] = 2
	require.Equal(t, 1, a[0])
}
