package seed

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/utils"
)

const sample = "\ufeffName,Role,Gender,Years of Experience,Fitness Certification,Mixed Crew Restrictions,Start Date,End Date,Same crew preferences,Different crew preferences\n" +
	"Ann,Leader,Female,5,National,,May 9,,\"Bob, Cat\",\n" +
	"Bob,Boss,Male,3,Provincial,Yes,,August 20,,Ann\n" +
	",,,,,,,,,\n" +
	"Cat,Member,Female,0,,,,,,\n"

func TestReadRangers(t *testing.T) {
	rangers, err := ReadRangers(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, rangers, 3)

	ann := rangers[0]
	require.Equal(t, "Ann", ann.Name)
	require.Equal(t, domain.RangerRoleLeader, ann.Role)
	require.Equal(t, int32(5), ann.YearsOfExperience)
	require.Equal(t, domain.NationalCertification, ann.FitnessCertification)
	require.Equal(t, "May 9", ann.StartDate)
	require.Empty(t, ann.EndDate)
	require.Equal(t, []string{"Bob", "Cat"}, ann.SameCrewPreferences)
	require.Empty(t, ann.DifferentCrewPreferences)

	bob := rangers[1]
	require.Equal(t, "Yes", bob.MixedCrewRestriction)
	require.Equal(t, "August 20", bob.EndDate)
	require.Equal(t, []string{"Ann"}, bob.DifferentCrewPreferences)

	require.Equal(t, "Cat", rangers[2].Name)
}

func TestReadRangersOptionalColumns(t *testing.T) {
	rangers, err := ReadRangers(strings.NewReader("Role,Name,Years of Experience\nMember,Dan,2\n"))
	require.NoError(t, err)
	require.Len(t, rangers, 1)
	require.Equal(t, "Dan", rangers[0].Name)
	require.Empty(t, rangers[0].Gender)
	require.Empty(t, rangers[0].SameCrewPreferences)
}

func TestReadRangersErrors(t *testing.T) {
	_, err := ReadRangers(strings.NewReader("Name,Gender\nAnn,Female\n"))
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadRangers(strings.NewReader("Name,Role,Years of Experience\nAnn,Leader,many\n"))
	require.ErrorContains(t, err, "第 2 行")

	_, err = ReadRangers(strings.NewReader(""))
	require.Error(t, err)
}

func TestWriteAssignment(t *testing.T) {
	rangers, err := ReadRangers(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteAssignment(&buf, rangers, []int{2, 1, 0}))
	out := buf.String()

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, ColumnCrew, records[0][len(records[0])-1])
	require.Equal(t, []string{"Ann", "Leader", "Female", "5", "National", "", "May 9", "", "Bob,Cat", "", "2"}, records[1])
	require.Equal(t, "1", records[2][10])
	require.Equal(t, "", records[3][10])

	// 输出可以重新读入，多出来的分队列会被忽略
	again, err := ReadRangers(strings.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, rangers, again)

	require.Error(t, WriteAssignment(&buf, rangers, []int{1}))
}

func TestSampleDataBuildsRoster(t *testing.T) {
	file, err := os.Open("data/rangers.csv")
	require.NoError(t, err)
	defer file.Close()

	rangers, err := ReadRangers(file)
	require.NoError(t, err)
	require.Len(t, rangers, 18)

	season, err := calendar.NewSeason("May 1", "August 31")
	require.NoError(t, err)

	for _, r := range rangers {
		require.NoError(t, utils.ValidateRanger(r, season), r.Name)
	}

	rs, err := roster.New(season, rangers)
	require.NoError(t, err)
	require.Equal(t, 4, rs.CrewCount())
	require.Equal(t, 2, rs.OversizedCrews())
}
