package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/gfreitas/placepin/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout; geocoding calls may queue
	// behind the outbound pacing interval
	v1 := app.Group("/v1")
	v1.Get("/locations", timeout.NewWithContext(ListLocationsHandler(deps), 15*time.Second))
	v1.Post("/locations", timeout.NewWithContext(CreateLocationHandler(deps), 15*time.Second))
	v1.Get("/locations/stats", timeout.NewWithContext(StatsHandler(deps), 15*time.Second))
	v1.Get("/locations/export", timeout.NewWithContext(ExportHandler(deps), 15*time.Second))
	v1.Post("/locations/import", timeout.NewWithContext(ImportHandler(deps), 15*time.Second))
	v1.Post("/locations/validate", timeout.NewWithContext(ValidateLocationHandler(deps), 15*time.Second))
	v1.Get("/locations/:id", timeout.NewWithContext(GetLocationHandler(deps), 15*time.Second))
	v1.Patch("/locations/:id", timeout.NewWithContext(UpdateLocationHandler(deps), 15*time.Second))
	v1.Delete("/locations/:id", timeout.NewWithContext(DeleteLocationHandler(deps), 15*time.Second))

	v1.Get("/geocode/search", timeout.NewWithContext(SearchHandler(deps), 15*time.Second))
	v1.Get("/geocode/places", timeout.NewWithContext(PlacesHandler(deps), 15*time.Second))
	v1.Get("/geocode/countries", timeout.NewWithContext(CountriesHandler(deps), 15*time.Second))
	v1.Get("/geocode/reverse", timeout.NewWithContext(ReverseHandler(deps), 15*time.Second))

	v1.Get("/preferences", timeout.NewWithContext(GetPreferencesHandler(deps), 15*time.Second))
	v1.Put("/preferences", timeout.NewWithContext(UpdatePreferencesHandler(deps), 15*time.Second))
	v1.Delete("/preferences", timeout.NewWithContext(ResetPreferencesHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket relay (requires NATS)
	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
