package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// savePassword 更新用户的密码哈希并写回数据库，结束时已经写好了响应
func (h *Handler) savePassword(w http.ResponseWriter, r *http.Request, user *domain.User, password string, msg string) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	user.PasswordHash = string(hashedPassword)

	if err := h.repository.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// version 不匹配，说明用户信息同时被修改了
			h.errorResponse(w, r, "修改密码失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, msg, nil)
}

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取个人信息成功", r.Context().Value(MyInfoCtx).(*domain.User))
}

// UpdateMyInfo 排班员只能修改自己的姓名，邮箱和角色由管理员维护
func (h *Handler) UpdateMyInfo(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		FullName string `json:"fullName" validate:"required,max=32"`
	}
	if !h.readAndValidate(w, r, &req) {
		return
	}

	me.FullName = req.FullName
	if err := h.repository.UpdateUser(me); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新个人信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新个人信息成功", me)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
	}
	if !h.readAndValidate(w, r, &req) {
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(me.PasswordHash), []byte(req.OldPassword)) != nil {
		h.errorResponse(w, r, "旧密码错误")
		return
	}

	h.savePassword(w, r, me, req.NewPassword, "修改密码成功")
}
