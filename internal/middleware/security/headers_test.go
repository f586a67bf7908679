package security

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		cfg       HeadersConfig
		ancestors string
		hsts      bool
	}{
		{"wildcard origins", HeadersConfig{AllowedOrigins: []string{"*"}}, "frame-ancestors 'none'", true},
		{"explicit origins", HeadersConfig{AllowedOrigins: []string{"https://a.example", " https://b.example "}}, "frame-ancestors https://a.example https://b.example", true},
		{"development", HeadersConfig{IsDevelopment: true}, "frame-ancestors 'none'", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(HeadersMiddleware(tt.cfg))
			app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)

			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'none'")
			assert.Contains(t, resp.Header.Get("Content-Security-Policy"), tt.ancestors)
			assert.Equal(t, tt.hsts, resp.Header.Get("Strict-Transport-Security") != "")
		})
	}
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, ParseOrigins(" https://a.example, ,https://b.example"))
	assert.Nil(t, ParseOrigins(""))
}
