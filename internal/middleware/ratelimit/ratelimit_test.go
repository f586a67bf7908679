package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLimiter_Allow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(Config{RequestsPerMinute: 2, now: clock.now})

	ok, _ := l.allow("global")
	assert.True(t, ok)
	ok, _ = l.allow("global")
	assert.True(t, ok)

	ok, wait := l.allow("global")
	assert.False(t, ok)
	assert.InDelta(t, float64(30*time.Second), float64(wait), float64(time.Millisecond))

	clock.t = clock.t.Add(31 * time.Second)
	ok, _ = l.allow("global")
	assert.True(t, ok, "one token refills every 30s at 2/min")

	ok, _ = l.allow("other")
	assert.True(t, ok, "buckets are per key")
}

func TestLimiter_Middleware(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(Config{RequestsPerMinute: 1, now: clock.now})

	app := fiber.New()
	app.Get("/render", l.Middleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/render", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/render", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}
