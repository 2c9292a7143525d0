package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gradia-go-api/internal/config"
	"github.com/noah-isme/gradia-go-api/internal/handler"
	"github.com/noah-isme/gradia-go-api/internal/middleware"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler *handler.GradingHandler
	AuditHandler   *handler.AuditHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/grading",
			jwtMiddleware,
			middleware.RequireRole(models.RoleTeacher, models.RoleAdmin),
			middleware.RateLimit("grading", 30, time.Minute),
		)
		deps.GradingHandler.Register(grading)
	}

	if deps.AuditHandler != nil {
		audit := api.Group("/audit-logs",
			jwtMiddleware,
			middleware.RequireRole(models.RoleAdmin),
		)
		deps.AuditHandler.Register(audit)
	}
}
