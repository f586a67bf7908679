// Package api assembles the fiber application serving the dashboard.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/api/handlers"
	"github.com/impulse-dash/backend/internal/metrics"
	"github.com/impulse-dash/backend/internal/middleware/ratelimit"
	"github.com/impulse-dash/backend/internal/middleware/validation"
)

type Handlers struct {
	Dashboard *handlers.DashboardHandler
	Health    *handlers.HealthHandler
	// Cache is nil when no dataset cache is configured.
	Cache *handlers.CacheHandler
	// Renders limits the endpoints that fetch the dataset; nil disables limiting.
	Renders *ratelimit.Limiter
	Logger  *zap.Logger
}

func SetupRoutes(app *fiber.App, h Handlers) {
	limit := func(c *fiber.Ctx) error { return c.Next() }
	if h.Renders != nil {
		limit = h.Renders.Middleware()
	}
	page := validation.Params(h.Logger, "page")
	chart := validation.Params(h.Logger, "page", "chart")

	api := app.Group("/api/v1")

	api.Get("/health", h.Health.Health)
	api.Get("/ready", h.Health.Ready)

	api.Get("/pages", h.Dashboard.ListPages)
	api.Get("/pages/:page", page, limit, h.Dashboard.GetPage)
	api.Get("/pages/:page/export", page, limit, h.Dashboard.ExportPage)
	api.Get("/pages/:page/charts/:chart", chart, limit, h.Dashboard.GetChart)
	api.Get("/pages/:page/charts/:chart/png", chart, limit, h.Dashboard.GetChartPNG)
	api.Get("/records", limit, h.Dashboard.GetRecords)

	if h.Cache != nil {
		api.Delete("/cache", h.Cache.Invalidate)
	}

	app.Get("/metrics", metrics.MetricsHandler())
}
