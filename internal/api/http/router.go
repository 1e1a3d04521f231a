package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Session        *handlers.SessionHandler
	Tickets        *handlers.TicketsHandler
	Messages       *handlers.MessagesHandler
	Ratings        *handlers.RatingsHandler
	Analysis       *handlers.AnalysisHandler
	Channels       *handlers.ChannelHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. The three ticket surfaces share one
// handler; each group binds its surface.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Session.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	api.Get("/auth/me", cfg.Session.Me)

	surfaces := map[string]policy.Surface{
		"all":  policy.SurfaceAll,
		"team": policy.SurfaceTeam,
		"my":   policy.SurfaceMy,
	}
	for path, surface := range surfaces {
		group := api.Group("/tickets/" + path)
		group.Get("/", cfg.Tickets.List(surface))
		group.Post("/", cfg.Tickets.Create(surface))
		group.Patch("/:id", cfg.Tickets.Update(surface))
		group.Delete("/:id", cfg.Tickets.Delete(surface))
		group.Post("/bulk-update", cfg.Tickets.BulkUpdate(surface))
		group.Post("/bulk-delete", cfg.Tickets.BulkDelete(surface))
	}

	api.Get("/tickets/:id", cfg.Tickets.Get)
	api.Get("/tickets/:id/messages", cfg.Messages.List)
	api.Post("/tickets/:id/messages", cfg.Messages.Create)

	api.Get("/teams", cfg.Tickets.ListTeams)
	api.Get("/tags", cfg.Tickets.ListTags)

	api.Post("/ratings", cfg.Ratings.Submit)
	api.Get("/ratings", cfg.Ratings.List)
	api.Get("/ratings/statistics", cfg.Ratings.Statistics)

	api.Get("/analysis/tickets", cfg.Analysis.Overview)
	api.Get("/analysis/metrics", cfg.Analysis.Metrics)

	api.Post("/channels/ticket/:id/auth", cfg.Channels.Authorize)
}
