package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticket-portal/internal/config"
)

// NewApp builds the Fiber application with global middlewares and routes.
func NewApp(cfg config.AppConfig, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, mw)
	RegisterRoutes(app, routes)
	return app
}
