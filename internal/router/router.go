package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/ai-project-hub/internal/config"
	"github.com/noah-isme/ai-project-hub/internal/handler"
	"github.com/noah-isme/ai-project-hub/internal/middleware"
	"github.com/noah-isme/ai-project-hub/internal/navigation"
	"github.com/noah-isme/ai-project-hub/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler            *handler.GradingHandler
	EvaluatorDashboardHandler *handler.EvaluatorDashboardHandler
	GeneratorHandler          *handler.GeneratorHandler
	StudentGradesHandler      *handler.StudentGradesHandler
	Navigation                *navigation.Registry
	HealthChecks              []handler.DependencyCheck
	JWTMiddleware             fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.Navigation != nil {
		api.Get("/navigation", jwtMiddleware, handler.Navigation(deps.Navigation))
	}

	app.Get("/metrics", observability.MetricsHandler())

	graderOnly := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeacher)

	if deps.GeneratorHandler != nil {
		generator := app.Group("/api/v2/generator", jwtMiddleware, graderOnly)
		deps.GeneratorHandler.Register(generator)
	}

	evaluator := app.Group("/api/v2/evaluator", jwtMiddleware, graderOnly)
	if deps.EvaluatorDashboardHandler != nil {
		deps.EvaluatorDashboardHandler.Register(evaluator)
	}
	if deps.GradingHandler != nil {
		limit := cfg.SuggestionRateLimit
		if limit <= 0 {
			limit = 6
		}
		deps.GradingHandler.Register(evaluator, middleware.RateLimit("suggestion", limit, time.Minute))
	}

	if deps.StudentGradesHandler != nil {
		student := app.Group("/api/v2/student", jwtMiddleware)
		deps.StudentGradesHandler.Register(student)
	}
}
