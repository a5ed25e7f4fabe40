package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/utils"
)

func crewPlanConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "crew_plans_name_key" {
		return errors.New("分队计划名称已存在")
	}
	return nil
}

func (h *Handler) CreateCrewPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required,max=64"`
		Description string `json:"description"`
		SeasonStart string `json:"seasonStart"`
		SeasonEnd   string `json:"seasonEnd"`
	}

	if !h.readAndValidate(w, r, &req) {
		return
	}

	plan := &domain.CrewPlan{
		Name:        req.Name,
		Description: req.Description,
		SeasonStart: req.SeasonStart,
		SeasonEnd:   req.SeasonEnd,
	}

	// 未指定赛季时使用配置中的默认赛季
	if plan.SeasonStart == "" {
		plan.SeasonStart = h.config.Season.Start
	}
	if plan.SeasonEnd == "" {
		plan.SeasonEnd = h.config.Season.End
	}

	if err := utils.ValidateCrewPlanSeason(plan); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateCrewPlan(plan); err != nil {
		if msg := crewPlanConstraintError(err); msg != nil {
			h.errorResponse(w, r, msg.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建分队计划成功", plan)
}

func (h *Handler) GetAllCrewPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.repository.GetAllCrewPlans()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取分队计划列表成功", plans)
}

func (h *Handler) GetCrewPlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)
	h.successResponse(w, r, "获取分队计划成功", plan)
}

func (h *Handler) UpdateCrewPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name" validate:"omitempty,max=64"`
		Description *string `json:"description"`
		SeasonStart *string `json:"seasonStart"`
		SeasonEnd   *string `json:"seasonEnd"`
	}

	if !h.readAndValidate(w, r, &req) {
		return
	}

	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.SeasonStart != nil {
		plan.SeasonStart = *req.SeasonStart
	}
	if req.SeasonEnd != nil {
		plan.SeasonEnd = *req.SeasonEnd
	}

	if err := utils.ValidateCrewPlanSeason(plan); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 修改赛季后，已有队员的日期可能落在赛季之外
	if req.SeasonStart != nil || req.SeasonEnd != nil {
		if err := h.validatePlanRangers(plan); err != nil {
			h.badRequest(w, r, err)
			return
		}
	}

	if err := h.repository.UpdateCrewPlan(plan); err != nil {
		if msg := crewPlanConstraintError(err); msg != nil {
			h.errorResponse(w, r, msg.Error())
			return
		}
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新分队计划失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新分队计划成功", plan)
}

func (h *Handler) validatePlanRangers(plan *domain.CrewPlan) error {
	season, err := planSeason(plan)
	if err != nil {
		return err
	}

	rangers, err := h.repository.GetRangersByCrewPlanID(plan.ID)
	if err != nil {
		return err
	}

	for _, ranger := range rangers {
		if err := utils.ValidateRanger(ranger, season); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) DeleteCrewPlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)

	if err := h.repository.DeleteCrewPlan(plan.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除分队计划成功", nil)
}
