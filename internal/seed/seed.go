package seed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/utils"
)

// SeedRealData 将表格中的真实名单导入为一个新的分队计划
func SeedRealData(r *repository.Repository, path string, season *calendar.Season) (*domain.CrewPlan, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	rangers, err := ReadRangers(file)
	if err != nil {
		return nil, err
	}

	for _, ranger := range rangers {
		if err := utils.ValidateRanger(ranger, season); err != nil {
			return nil, err
		}
	}

	plan := &domain.CrewPlan{
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Description: fmt.Sprintf("从 %s 导入", path),
		SeasonStart: season.Start(),
		SeasonEnd:   season.End(),
	}
	if err := r.CreateCrewPlan(plan); err != nil {
		return nil, fmt.Errorf("插入分队计划失败: %w", err)
	}

	for _, ranger := range rangers {
		ranger.CrewPlanID = plan.ID
	}
	if err := r.CreateRangers(rangers); err != nil {
		return nil, fmt.Errorf("插入队员失败: %w", err)
	}

	slog.Info("插入数据完成", "crewPlanID", plan.ID, "rangers", len(rangers))

	return plan, nil
}
