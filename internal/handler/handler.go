package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/repository"
)

// MailPublisher 邮件消息的发布者，*amqp.Channel 实现了该接口
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Handle("/metrics", promhttp.Handler())

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/", h.UpdateMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole(domain.UserRoleAdmin))
			r.Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
				r.Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/crew-plans", func(r chi.Router) {
			r.Post("/", h.CreateCrewPlan)
			r.Get("/", h.GetAllCrewPlans)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.crewPlan)
				r.Get("/", h.GetCrewPlan)
				r.Patch("/", h.UpdateCrewPlan)
				r.With(h.RequiredRole(domain.UserRoleAdmin)).Delete("/", h.DeleteCrewPlan)

				r.Route("/rangers", func(r chi.Router) {
					r.Get("/", h.GetRangers)
					r.Post("/", h.CreateRanger)
					r.Post("/import", h.ImportRangers)
					r.Route("/{rangerID}", func(r chi.Router) {
						r.Use(h.ranger)
						r.Get("/", h.GetRanger)
						r.Patch("/", h.UpdateRanger)
						r.Delete("/", h.DeleteRanger)
					})
				})

				r.Route("/assignment", func(r chi.Router) {
					r.Get("/", h.GetCrewAssignment)
					r.With(h.myInfo).Post("/generate", h.GenerateCrewAssignment)
					r.Get("/export", h.ExportCrewAssignment)
				})
			})
		})
	})
}
