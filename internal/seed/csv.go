package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

// 名单表格的列名
const (
	ColumnName                     = "Name"
	ColumnRole                     = "Role"
	ColumnGender                   = "Gender"
	ColumnYearsOfExperience        = "Years of Experience"
	ColumnFitnessCertification     = "Fitness Certification"
	ColumnMixedCrewRestriction     = "Mixed Crew Restrictions"
	ColumnStartDate                = "Start Date"
	ColumnEndDate                  = "End Date"
	ColumnSameCrewPreferences      = "Same crew preferences"
	ColumnDifferentCrewPreferences = "Different crew preferences"
	ColumnCrew                     = "Crew"
)

var Columns = []string{
	ColumnName,
	ColumnRole,
	ColumnGender,
	ColumnYearsOfExperience,
	ColumnFitnessCertification,
	ColumnMixedCrewRestriction,
	ColumnStartDate,
	ColumnEndDate,
	ColumnSameCrewPreferences,
	ColumnDifferentCrewPreferences,
}

// 缺少这些列时无法建立名单，其余列缺失时视为空值
var requiredColumns = []string{ColumnName, ColumnRole, ColumnYearsOfExperience}

var ErrMissingColumn = errors.New("名单缺少必要的列")

// ReadRangers 读取带表头的名单表格，返回的队员顺序与表格中的行顺序一致
func ReadRangers(r io.Reader) ([]*domain.Ranger, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, header := range headers {
		// 去掉 Excel 导出时可能带上的 BOM
		header = strings.TrimPrefix(strings.TrimSpace(header), "\ufeff")
		index[header] = i
	}
	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}

	rangers := make([]*domain.Ranger, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取第 %d 行失败: %w", line, err)
		}

		get := func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		// 跳过空行
		if get(ColumnName) == "" && get(ColumnRole) == "" {
			continue
		}

		experience, err := strconv.ParseInt(get(ColumnYearsOfExperience), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行的工作年限 %q 不是整数", line, get(ColumnYearsOfExperience))
		}

		rangers = append(rangers, &domain.Ranger{
			Name:                     get(ColumnName),
			Role:                     domain.RangerRole(get(ColumnRole)),
			Gender:                   get(ColumnGender),
			YearsOfExperience:        int32(experience),
			FitnessCertification:     get(ColumnFitnessCertification),
			MixedCrewRestriction:     get(ColumnMixedCrewRestriction),
			StartDate:                get(ColumnStartDate),
			EndDate:                  get(ColumnEndDate),
			SameCrewPreferences:      splitNames(get(ColumnSameCrewPreferences)),
			DifferentCrewPreferences: splitNames(get(ColumnDifferentCrewPreferences)),
		})
	}

	return rangers, nil
}

func splitNames(cell string) []string {
	names := make([]string, 0)
	for _, name := range strings.Split(cell, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// WriteAssignment 输出原始名单并在最后追加一列分队 ID，crewOf[i] 为 rangers[i] 所在的分队
func WriteAssignment(w io.Writer, rangers []*domain.Ranger, crewOf []int) error {
	if len(crewOf) != len(rangers) {
		return fmt.Errorf("分配方案包含 %d 名队员，名单中有 %d 名", len(crewOf), len(rangers))
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(append(append([]string{}, Columns...), ColumnCrew)); err != nil {
		return err
	}

	for i, ranger := range rangers {
		crew := ""
		if crewOf[i] > 0 {
			crew = strconv.Itoa(crewOf[i])
		}

		record := []string{
			ranger.Name,
			string(ranger.Role),
			ranger.Gender,
			strconv.Itoa(int(ranger.YearsOfExperience)),
			ranger.FitnessCertification,
			ranger.MixedCrewRestriction,
			ranger.StartDate,
			ranger.EndDate,
			strings.Join(ranger.SameCrewPreferences, ","),
			strings.Join(ranger.DifferentCrewPreferences, ","),
			crew,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
