package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/sigea-go-api/internal/config"
	"github.com/noah-isme/sigea-go-api/internal/handler"
	"github.com/noah-isme/sigea-go-api/internal/middleware"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CertificateHandler  *handler.CertificateHandler
	TemplateHandler     *handler.TemplateHandler
	ValidationHandler   *handler.ValidationHandler
	RegistrationHandler *handler.RegistrationHandler
	EventHandler        *handler.EventHandler
	HealthProbes        []handler.HealthProbe
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	if deps.ValidationHandler != nil {
		public := api.Group("/public/certificates", middleware.RateLimitByIP("certificate-validate", cfg.ValidationRateLimit, cfg.ValidationRateWindow))
		deps.ValidationHandler.Register(public)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	organizerOnly := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)

	v2 := app.Group("/api/v2", jwtMiddleware)
	events := v2.Group("/events")

	// Organizer groups are mounted on their own prefixes so the role guard
	// does not leak onto participant routes under /events.
	if deps.TemplateHandler != nil {
		deps.TemplateHandler.Register(events.Group("/:eventID/template", organizerOnly))
	}
	if deps.EventHandler != nil {
		deps.EventHandler.Register(events.Group("/:eventID/workload", organizerOnly))
	}

	if deps.RegistrationHandler != nil {
		deps.RegistrationHandler.Register(events)
	}
	if deps.CertificateHandler != nil {
		deps.CertificateHandler.RegisterEventRoutes(events)
		deps.CertificateHandler.Register(v2.Group("/certificates"))
	}
}
