package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/defect-tracker/internal/api/http/handlers"
	"github.com/spec-kit/defect-tracker/internal/auth"
	"github.com/spec-kit/defect-tracker/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Projects       *handlers.ProjectsHandler
	Lookups        *handlers.LookupsHandler
	Defects        *handlers.DefectsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Observers get read access only,
// engineers additionally mutate defects, managers everything.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	protected.Post("/auth/password/change", cfg.Auth.ChangePassword)
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Get("/users", auth.RequireRole(domain.RoleManager), cfg.Auth.ListUsers)
	protected.Put("/users/:id/role", auth.RequireRole(domain.RoleManager), cfg.Auth.UpdateUserRole)

	protected.Get("/defect-statuses", cfg.Lookups.ListDefectStatuses)
	protected.Get("/project-stages", cfg.Lookups.ListProjectStages)

	manager := auth.RequireRole(domain.RoleManager)
	editor := auth.RequireRole(domain.RoleManager, domain.RoleEngineer)

	projects := protected.Group("/projects")
	projects.Get("", cfg.Projects.ListProjects)
	projects.Get("/:id", cfg.Projects.GetProject)
	projects.Post("", manager, cfg.Projects.CreateProject)
	projects.Put("/:id", manager, cfg.Projects.UpdateProject)
	projects.Delete("/:id", manager, cfg.Projects.DeleteProject)

	defects := protected.Group("/defects")
	defects.Get("", cfg.Defects.ListDefects)
	defects.Get("/:id", cfg.Defects.GetDefect)
	defects.Get("/:id/history", cfg.Defects.ListHistory)
	defects.Get("/:id/comments", cfg.Defects.ListComments)
	defects.Get("/:id/attachments", cfg.Defects.ListAttachments)
	defects.Post("", editor, cfg.Defects.CreateDefect)
	defects.Put("/:id", editor, cfg.Defects.UpdateDefect)
	defects.Delete("/:id", manager, cfg.Defects.DeleteDefect)
	defects.Post("/:id/comments", editor, cfg.Defects.AddComment)
	defects.Post("/:id/attachments", editor, cfg.Defects.AddAttachment)

	protected.Get("/attachments/:id", cfg.Defects.GetAttachment)
	protected.Delete("/attachments/:id", editor, cfg.Defects.DeleteAttachment)
}
