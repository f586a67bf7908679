package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/impulse-dash/backend/internal/dashboard"
	"github.com/impulse-dash/backend/internal/render"
	"github.com/impulse-dash/backend/internal/survey"
	"github.com/impulse-dash/backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DashboardHandler struct {
	service *dashboard.Service
	png     render.Options
}

func NewDashboardHandler(service *dashboard.Service, png render.Options) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		png:     png,
	}
}

func (h *DashboardHandler) ListPages(c *fiber.Ctx) error {
	type chartInfo struct {
		ID    string              `json:"id"`
		Title string              `json:"title"`
		Kind  dashboard.ChartKind `json:"kind"`
	}
	type pageInfo struct {
		Name   string      `json:"name"`
		Title  string      `json:"title"`
		Charts []chartInfo `json:"charts"`
	}

	pages := h.service.Pages()
	out := make([]pageInfo, len(pages))
	for i, p := range pages {
		out[i] = pageInfo{Name: p.Name, Title: p.Title, Charts: make([]chartInfo, len(p.Charts))}
		for j, ch := range p.Charts {
			out[i].Charts[j] = chartInfo{ID: ch.ID, Title: ch.Title, Kind: ch.Kind}
		}
	}
	return c.JSON(fiber.Map{"pages": out})
}

func (h *DashboardHandler) GetPage(c *fiber.Ctx) error {
	rendering, err := h.service.Render(c.Context(), c.Params("page"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rendering)
}

func (h *DashboardHandler) GetChart(c *fiber.Ctx) error {
	table, err := h.service.RenderChart(c.Context(), c.Params("page"), c.Params("chart"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(table)
}

func (h *DashboardHandler) GetChartPNG(c *fiber.Ctx) error {
	table, err := h.service.RenderChart(c.Context(), c.Params("page"), c.Params("chart"))
	if err != nil {
		return writeError(c, err)
	}

	img, err := render.PNG(*table, h.png)
	if err != nil {
		logger.Error("Failed to draw chart", zap.String("chart", table.Chart), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to draw chart",
		})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(img)
}

func (h *DashboardHandler) ExportPage(c *fiber.Ctx) error {
	rendering, err := h.service.Render(c.Context(), c.Params("page"))
	if err != nil {
		return writeError(c, err)
	}

	f, err := render.Workbook(rendering)
	if err != nil {
		logger.Error("Failed to build workbook", zap.String("page", rendering.Page), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build workbook",
		})
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		logger.Error("Failed to write workbook", zap.String("page", rendering.Page), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write workbook",
		})
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rendering.Page+".xlsx"))
	return c.Send(buf.Bytes())
}

func (h *DashboardHandler) GetRecords(c *fiber.Ctx) error {
	snap, err := h.service.Snapshot(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(snap)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *fiber.Ctx, err error) error {
	var (
		schemaErr    *survey.SchemaError
		insufficient *survey.InsufficientDataError
		unavailable  *survey.DataUnavailableError
	)

	switch {
	case errors.Is(err, dashboard.ErrPageNotFound), errors.Is(err, dashboard.ErrChartNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})

	case errors.As(err, &schemaErr):
		logger.Error("Schema error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":     "Construct configuration does not match the dataset",
			"construct": schemaErr.Construct,
			"field":     schemaErr.Field,
			"detail":    schemaErr.Reason,
		})

	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Insufficient data",
			"detail": insufficient.Error(),
		})

	case errors.As(err, &unavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":  "Survey data unavailable",
			"source": unavailable.Source,
		})

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Request cancelled",
		})
	}

	logger.Error("Unhandled dashboard error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
