package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/impulse-dash/backend/pkg/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler builds liveness and readiness endpoints. Readiness pings
// every named dependency.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	if checks == nil {
		checks = map[string]Pinger{}
	}
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := fiber.Map{}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not ready",
			"failed": failed,
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
	})
}

type DatasetInvalidator interface {
	InvalidateDatasets(ctx context.Context) (int, error)
}

type CacheHandler struct {
	cache DatasetInvalidator
}

func NewCacheHandler(cache DatasetInvalidator) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// Invalidate drops cached dataset bodies so the next render refetches.
func (h *CacheHandler) Invalidate(c *fiber.Ctx) error {
	n, err := h.cache.InvalidateDatasets(c.Context())
	if err != nil {
		logger.Error("Failed to invalidate dataset cache", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to invalidate cache",
		})
	}
	return c.JSON(fiber.Map{
		"removed": n,
	})
}
