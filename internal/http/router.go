package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/http/features/chat"
	"github.com/taskdeck/taskdeck/internal/http/features/me"
	"github.com/taskdeck/taskdeck/internal/http/features/password"
	"github.com/taskdeck/taskdeck/internal/http/features/tasks"
	"github.com/taskdeck/taskdeck/internal/http/middleware"
	"github.com/taskdeck/taskdeck/internal/httputil"
	"github.com/taskdeck/taskdeck/pkg/agent"
	"github.com/taskdeck/taskdeck/pkg/auth"
	"github.com/taskdeck/taskdeck/pkg/tools"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	PasswordService *auth.PasswordService
	TokenService    *auth.TokenService
	Invoker         *tools.Invoker
	Orchestrator    *agent.Orchestrator
	RateLimit       config.RateLimitConfig
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimit, cfg.Logger)
	requireAuth := middleware.Auth(cfg.TokenService)

	passwordHandler := password.NewHandler(cfg.Logger, cfg.PasswordService, cfg.TokenService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/auth/register", passwordHandler.Register)
		r.Post("/v1/auth/login", passwordHandler.Login)
	})

	meHandler := me.NewHandler()
	r.With(requireAuth).Get("/v1/me", meHandler.GetMe)

	chatHandler := chat.NewHandler(cfg.Logger, cfg.Orchestrator)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters["chat"])
		r.Post("/v1/chat", chatHandler.Send)
	})

	tasksHandler := tasks.NewHandler(cfg.Logger, cfg.Invoker)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/v1/tasks", tasksHandler.Create)
		r.Get("/v1/tasks", tasksHandler.List)
		r.Patch("/v1/tasks/{id}", tasksHandler.Update)
		r.Patch("/v1/tasks/{id}/complete", tasksHandler.Complete)
		r.Delete("/v1/tasks/{id}", tasksHandler.Delete)
	})

	return r
}
