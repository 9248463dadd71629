package handler

import (
	"errors"

	"license-server/internal/metrics"
	"license-server/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the fiber application with every route mounted.
func NewApp(h *Handler, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               h.appName,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/", h.HandleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	app.Post("/api/validate", h.HandleValidate)

	authn := middleware.Auth(h.jwtSecret)
	adminOnly := middleware.AdminOnly(h.db)

	auth := app.Group("/api/v1/auth")
	auth.Post("/login", h.HandleAdminLogin)
	auth.Post("/change-password", authn, adminOnly, h.HandleChangePassword)
	auth.Get("/login-logs", authn, adminOnly, h.HandleGetLoginLogs)

	admin := app.Group("/admin", authn, adminOnly)
	admin.Post("/create", h.HandleAdminCreate)
	admin.Get("/list", h.HandleAdminList)
	admin.Post("/update", h.HandleAdminUpdate)
	admin.Post("/export", h.HandleAdminExport)
	admin.Get("/licenses/:key", h.HandleGetLicense)
	admin.Get("/licenses/:key/usage", h.HandleLicenseUsage)
	admin.Get("/statistics", h.HandleLicenseStatistics)
	admin.Get("/logs", h.HandleGetLogs)

	return app
}
