package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticket-portal/internal/api/http/handlers"
	"github.com/helpdesk-labs/ticket-portal/internal/auth"
	"github.com/helpdesk-labs/ticket-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Reads are public; every write needs a
// bearer token and only clients may file tickets.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/authenticate", cfg.Auth.Authenticate)

	tickets := app.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	tickets.Post("/", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleClient), cfg.Tickets.CreateTicket)
	tickets.Put("/:id", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Tickets.DeleteTicket)
}
