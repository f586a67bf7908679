package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stubInvalidator struct {
	n   int
	err error
}

func (s stubInvalidator) InvalidateDatasets(context.Context) (int, error) { return s.n, s.err }

func TestHealthHandler(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		want   int
	}{
		{"no checks", nil, fiber.StatusOK},
		{"all healthy", map[string]Pinger{"redis": ok}, fiber.StatusOK},
		{"redis down", map[string]Pinger{"redis": down, "other": ok}, fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks)
			app := fiber.New()
			app.Get("/health", h.Health)
			app.Get("/ready", h.Ready)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			resp, err = app.Test(httptest.NewRequest("GET", "/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCacheHandler_Invalidate(t *testing.T) {
	app := fiber.New()
	app.Delete("/ok", NewCacheHandler(stubInvalidator{n: 2}).Invalidate)
	app.Delete("/fail", NewCacheHandler(stubInvalidator{err: errors.New("redis down")}).Invalidate)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
