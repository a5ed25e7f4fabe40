package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/seed"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/utils"
)

func planSeason(plan *domain.CrewPlan) (*calendar.Season, error) {
	return calendar.NewSeason(plan.SeasonStart, plan.SeasonEnd)
}

func rangerConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "rangers_crew_plan_id_name_key" {
		return errors.New("该计划中已存在同名队员")
	}
	return nil
}

type rangerRequest struct {
	Name                     string   `json:"name" validate:"required,max=64"`
	Role                     string   `json:"role" validate:"required,oneof=Leader Boss Member"`
	Gender                   string   `json:"gender" validate:"max=32"`
	YearsOfExperience        int32    `json:"yearsOfExperience" validate:"min=0,max=60"`
	FitnessCertification     string   `json:"fitnessCertification"`
	MixedCrewRestriction     string   `json:"mixedCrewRestriction"`
	StartDate                string   `json:"startDate"`
	EndDate                  string   `json:"endDate"`
	SameCrewPreferences      []string `json:"sameCrewPreferences" validate:"dive,required"`
	DifferentCrewPreferences []string `json:"differentCrewPreferences" validate:"dive,required"`
}

func (req *rangerRequest) apply(ranger *domain.Ranger) {
	ranger.Name = req.Name
	ranger.Role = domain.RangerRole(req.Role)
	ranger.Gender = req.Gender
	ranger.YearsOfExperience = req.YearsOfExperience
	ranger.FitnessCertification = req.FitnessCertification
	ranger.MixedCrewRestriction = req.MixedCrewRestriction
	ranger.StartDate = req.StartDate
	ranger.EndDate = req.EndDate
	ranger.SameCrewPreferences = append([]string{}, req.SameCrewPreferences...)
	ranger.DifferentCrewPreferences = append([]string{}, req.DifferentCrewPreferences...)
}

func (h *Handler) GetRangers(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)

	rangers, err := h.repository.GetRangersByCrewPlanID(plan.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取队员列表成功", rangers)
}

func (h *Handler) GetRanger(w http.ResponseWriter, r *http.Request) {
	ranger := r.Context().Value(RangerCtx).(*domain.Ranger)
	h.successResponse(w, r, "获取队员成功", ranger)
}

func (h *Handler) CreateRanger(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)

	var req rangerRequest
	if !h.readAndValidate(w, r, &req) {
		return
	}

	ranger := &domain.Ranger{CrewPlanID: plan.ID}
	req.apply(ranger)

	season, err := planSeason(plan)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if err := utils.ValidateRanger(ranger, season); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateRanger(ranger); err != nil {
		if msg := rangerConstraintError(err); msg != nil {
			h.errorResponse(w, r, msg.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "添加队员成功", ranger)
}

func (h *Handler) UpdateRanger(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)
	ranger := r.Context().Value(RangerCtx).(*domain.Ranger)

	var req rangerRequest
	if !h.readAndValidate(w, r, &req) {
		return
	}
	req.apply(ranger)

	season, err := planSeason(plan)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if err := utils.ValidateRanger(ranger, season); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.UpdateRanger(ranger); err != nil {
		if msg := rangerConstraintError(err); msg != nil {
			h.errorResponse(w, r, msg.Error())
			return
		}
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新队员失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新队员成功", ranger)
}

func (h *Handler) DeleteRanger(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)
	ranger := r.Context().Value(RangerCtx).(*domain.Ranger)

	if err := h.repository.DeleteRanger(plan.ID, ranger.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "队员不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除队员成功", nil)
}

// ImportRangers 请求体为名单表格（text/csv），所有队员在同一个事务中插入
func (h *Handler) ImportRangers(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	rangers, err := seed.ReadRangers(r.Body)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if len(rangers) == 0 {
		h.errorResponse(w, r, "名单为空")
		return
	}

	season, err := planSeason(plan)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	for i, ranger := range rangers {
		if err := utils.ValidateRanger(ranger, season); err != nil {
			h.badRequest(w, r, fmt.Errorf("第 %d 名队员: %w", i+1, err))
			return
		}
		ranger.CrewPlanID = plan.ID
	}

	if err := h.repository.CreateRangers(rangers); err != nil {
		if msg := rangerConstraintError(err); msg != nil {
			h.errorResponse(w, r, msg.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, fmt.Sprintf("成功导入 %d 名队员", len(rangers)), rangers)
}
