package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/seed"
)

func generatingLockKey(crewPlanID int64) string {
	return fmt.Sprintf("crew_plan_%d_generating", crewPlanID)
}

// 只有锁的值仍是自己的 token 时才删除
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// acquireGeneratingLock 成功时返回用于释放锁的 token
func (h *Handler) acquireGeneratingLock(parent context.Context, crewPlanID int64, holder string) (string, bool, error) {
	ctx, cancel := h.redisContext(parent)
	defer cancel()

	token := fmt.Sprintf("%s:%d", holder, time.Now().UnixNano())
	locked, err := h.redisClient.SetNX(ctx, generatingLockKey(crewPlanID), token, time.Duration(h.config.Annealing.LockExpiration)*time.Second).Result()
	if err != nil {
		return "", false, err
	}
	return token, locked, nil
}

// releaseGeneratingLock 锁已过期并被其他请求获得时不会删除，返回 false
func (h *Handler) releaseGeneratingLock(parent context.Context, crewPlanID int64, token string) (bool, error) {
	ctx, cancel := h.redisContext(parent)
	defer cancel()

	deleted, err := releaseLockScript.Run(ctx, h.redisClient, []string{generatingLockKey(crewPlanID)}, token).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

func (h *Handler) GetCrewAssignment(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)

	result, err := h.repository.GetCrewAssignmentResultByCrewPlanID(plan.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "该计划尚未生成分队方案")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取分队方案成功", result)
}

type generateRequest struct {
	InitialTemperature *float64 `json:"initialTemperature" validate:"omitempty,gt=0"`
	CoolingRate        *float64 `json:"coolingRate" validate:"omitempty,gt=0,lt=1"`
	FinalTemperature   *float64 `json:"finalTemperature" validate:"omitempty,gt=0"`
	Seed               *int64   `json:"seed"`
	Restarts           *int     `json:"restarts" validate:"omitempty,min=1,max=32"`
}

// annealingParameters 请求中没有给出的参数使用配置中的默认值
func (h *Handler) annealingParameters(req *generateRequest) (*scheduler.Parameters, int) {
	p := &scheduler.Parameters{
		InitialTemperature: h.config.Annealing.InitialTemperature,
		CoolingRate:        h.config.Annealing.CoolingRate,
		FinalTemperature:   h.config.Annealing.FinalTemperature,
		Seed:               h.config.Annealing.Seed,
		LogEvery:           h.config.Annealing.LogEvery,
	}
	restarts := h.config.Annealing.Restarts

	if req.InitialTemperature != nil {
		p.InitialTemperature = *req.InitialTemperature
	}
	if req.CoolingRate != nil {
		p.CoolingRate = *req.CoolingRate
	}
	if req.FinalTemperature != nil {
		p.FinalTemperature = *req.FinalTemperature
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if req.Restarts != nil {
		restarts = *req.Restarts
	}

	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}

	return p, max(restarts, 1)
}

// GenerateCrewAssignment 对计划中的全部队员进行模拟退火并保存结果，完成后给操作者发送邮件。
// 同一个计划同一时间只允许一个生成任务。
func (h *Handler) GenerateCrewAssignment(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req generateRequest
	if !h.readOptionalAndValidate(w, r, &req) {
		return
	}

	params, restarts := h.annealingParameters(&req)
	if err := params.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	token, locked, err := h.acquireGeneratingLock(r.Context(), plan.ID, myInfo.Username)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !locked {
		h.errorResponse(w, r, "该计划正在生成分队方案，请稍后再试")
		return
	}
	defer func() {
		released, err := h.releaseGeneratingLock(context.Background(), plan.ID, token)
		switch {
		case err != nil:
			slog.Error("无法释放生成锁", "crewPlanID", plan.ID, "error", err)
		case !released:
			slog.Warn("生成锁已过期，未释放其他请求持有的锁", "crewPlanID", plan.ID)
		}
	}()

	rangers, err := h.repository.GetRangersByCrewPlanID(plan.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	season, err := planSeason(plan)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	rs, err := roster.New(season, rangers)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrDegenerateRoster),
			errors.Is(err, roster.ErrDuplicateRanger),
			errors.Is(err, roster.ErrInvalidRanger):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	s, err := scheduler.New(params, rs)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	slog.Info("开始生成分队方案", "crewPlanID", plan.ID, "rangers", rs.Len(), "crews", rs.CrewCount(), "seed", params.Seed, "restarts", restarts)

	res, err := s.ScheduleBest(r.Context(), restarts)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.errorResponse(w, r, "生成分队方案已取消")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	result := newCrewAssignmentResult(plan, rs, params, res)
	if err := h.repository.InsertCrewAssignmentResult(result); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 邮件发送失败不影响生成结果
	if err := h.publishMail(domain.MailMessage{
		Type: mailTypeAssignmentDone,
		To:   myInfo.Email,
		Data: domain.AssignmentReadyMailData{
			FullName:     myInfo.FullName,
			CrewPlanName: plan.Name,
			Cost:         result.Cost,
			CrewCount:    len(result.Crews),
			Iterations:   result.Iterations,
		},
	}); err != nil {
		slog.Error("无法发送分队方案完成邮件", "crewPlanID", plan.ID, "error", err)
	}

	h.successResponse(w, r, "生成分队方案成功", result)
}

// newCrewAssignmentResult 把退火结果中的名单下标换成数据库中的队员 ID
func newCrewAssignmentResult(plan *domain.CrewPlan, rs *roster.Roster, params *scheduler.Parameters, res *scheduler.Result) *domain.CrewAssignmentResult {
	crews := rs.Crews(res.Assignment)

	result := &domain.CrewAssignmentResult{
		CrewPlanID:         plan.ID,
		Cost:               int64(res.Cost),
		Iterations:         int64(res.Iterations),
		InitialTemperature: params.InitialTemperature,
		CoolingRate:        params.CoolingRate,
		FinalTemperature:   params.FinalTemperature,
		Seed:               res.Seed,
		Crews:              make([]domain.CrewAssignmentCrew, len(crews)),
	}

	if b := res.Breakdown; b != nil {
		result.Breakdown = domain.CrewAssignmentCost{
			Preference:    float64(b.Preference),
			Understaffing: float64(b.Understaffing),
			MixedCrew:     float64(b.MixedCrew),
			Certification: float64(b.Certification),
			Experience:    b.Experience,
		}
	}

	for i, crew := range crews {
		ids := make([]int64, len(crew))
		for j, idx := range crew {
			ids[j] = rs.Ranger(idx).ID
		}
		result.Crews[i] = domain.CrewAssignmentCrew{
			CrewID:    int32(i + 1),
			RangerIDs: ids,
		}
	}

	return result
}

// crewsByRanger 返回与 rangers 一一对应的分队编号，不在方案中的队员为 0
func crewsByRanger(rangers []*domain.Ranger, result *domain.CrewAssignmentResult) []int {
	crewOf := make(map[int64]int)
	for _, crew := range result.Crews {
		for _, id := range crew.RangerIDs {
			crewOf[id] = int(crew.CrewID)
		}
	}

	out := make([]int, len(rangers))
	for i, ranger := range rangers {
		out[i] = crewOf[ranger.ID]
	}
	return out
}

// ExportCrewAssignment 以名单表格的格式导出分队方案，最后一列为分队编号
func (h *Handler) ExportCrewAssignment(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(CrewPlanCtx).(*domain.CrewPlan)

	result, err := h.repository.GetCrewAssignmentResultByCrewPlanID(plan.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "该计划尚未生成分队方案")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	rangers, err := h.repository.GetRangersByCrewPlanID(plan.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	filename := plan.Name + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))

	if err := seed.WriteAssignment(w, rangers, crewsByRanger(rangers, result)); err != nil {
		// 响应头已经写出，只能记录日志
		h.logInternalServerError(r, err)
	}
}
