package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/config"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Metrics   fiber.Handler
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	Upload    config.UploadConfig
	// LimiterStorage backs the create-ticket limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}
	if cfg.Upload.PublicPrefix != "" && cfg.Upload.Dir != "" {
		app.Static(cfg.Upload.PublicPrefix, cfg.Upload.Dir)
	}

	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORS.AllowOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets", createLimiter(cfg), cfg.Tickets.CreateTicket)
}

// createLimiter bounds ticket creation per client IP. Max <= 0 disables it.
func createLimiter(cfg RouteConfig) fiber.Handler {
	if cfg.RateLimit.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               cfg.RateLimit.Max,
		Expiration:        cfg.RateLimit.Window(),
		Storage:           cfg.LimiterStorage,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewRateLimited()
		},
	})
}
