package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-taskboard-api/internal/application/attachment"
	"github.com/go-taskboard-api/internal/application/auth"
	"github.com/go-taskboard-api/internal/application/department"
	"github.com/go-taskboard-api/internal/application/task"
	"github.com/go-taskboard-api/internal/application/user"
	"github.com/go-taskboard-api/internal/config"
	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-taskboard-api/internal/transport/http/handler"
	appmiddleware "github.com/go-taskboard-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// The caller owns the limiter's cleanup goroutine and stops it on shutdown.
	authRL := deps.AuthLimiter
	if authRL == nil {
		panic("http: Deps.AuthLimiter is required")
	}

	attachmentSvc := attachment.NewService(attachment.ServiceDeps{
		AttachmentRepo: deps.AttachmentRepo,
		TaskRepo:       deps.TaskRepo,
		Storage:        deps.ObjectStore,
		URLTTL:         cfg.AttachmentURLTTL,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo: deps.UserRepo,
		Mailer:   deps.Mailer,
		Signer:   deps.Tokens,
		OTPTTL:   cfg.OTPTTL,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:       deps.UserRepo,
		DepartmentRepo: deps.DepartmentRepo,
		Mailer:         deps.Mailer,
		OTPTTL:         cfg.OTPTTL,
	})
	departmentSvc := department.NewService(department.ServiceDeps{
		DepartmentRepo: deps.DepartmentRepo,
		UserRepo:       deps.UserRepo,
	})
	taskSvc := task.NewService(task.ServiceDeps{
		TaskRepo:       deps.TaskRepo,
		UserRepo:       deps.UserRepo,
		DepartmentRepo: deps.DepartmentRepo,
		Attachments:    attachmentSvc,
		SMSSender:      deps.SMSSender,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	deptH := handler.NewDepartmentHandler(departmentSvc)
	taskH := handler.NewTaskHandler(taskSvc)
	attH := handler.NewAttachmentHandler(attachmentSvc)

	// ── Public routes (no auth) ──────────────────────────────────────────
	r.Get("/health", healthH.Health)
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authRL.Limit)
			r.Post("/login", authH.Login)
			r.Post("/first-login-reset", authH.FirstLoginReset)
			r.Post("/forgot-password", authH.ForgotPassword)
			r.Post("/verify-otp", authH.VerifyOTP)
			r.Post("/set-new-password", authH.SetNewPassword)
		})
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Tokens))
			r.Get("/me", authH.Me)
			r.Post("/change-password", authH.ChangePassword)
		})
	})

	// ── Authenticated routes ─────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Auth(deps.Tokens))

		// Any authenticated user; ownership is checked by the services.
		r.Get("/tasks", taskH.ListMine)
		r.Get("/tasks/{id}", taskH.GetMine)
		r.Patch("/tasks/{id}/status", taskH.UpdateStatus)
		r.Get("/tasks/{id}/attachments", attH.List)
		r.Post("/tasks/{id}/attachments", attH.Upload)
		r.Get("/tasks/{id}/attachments/{attachmentID}", attH.Download)

		// Admin-only routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

			r.Get("/users", userH.List)
			r.Post("/users", userH.Create)
			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Delete("/users/{id}", userH.Delete)

			r.Get("/tasks", taskH.List)
			r.Post("/tasks", taskH.Create)
			r.Get("/tasks/stats", taskH.Stats)
			r.Get("/tasks/{id}", taskH.Get)
			r.Put("/tasks/{id}", taskH.Update)
			r.Delete("/tasks/{id}", taskH.Delete)
			r.Delete("/tasks/{id}/attachments/{attachmentID}", attH.Delete)

			r.Get("/departments", deptH.List)
			r.Post("/departments", deptH.Create)
			r.Get("/departments/{id}", deptH.Get)
			r.Put("/departments/{id}", deptH.Update)
			r.Delete("/departments/{id}", deptH.Delete)
		})
	})

	return r
}
