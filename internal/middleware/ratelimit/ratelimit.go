package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Every render triggers a dataset fetch, so the limiter guards the upstream
// source rather than individual callers: by default all requests share one
// bucket.

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

type Config struct {
	// RequestsPerMinute is the refill rate and the burst size.
	RequestsPerMinute int
	// KeyFunc picks the bucket for a request; nil shares one bucket.
	KeyFunc func(c *fiber.Ctx) string
	Logger  *zap.Logger
	now     func() time.Time
}

type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   float64
	perSec  float64
	keyFunc func(c *fiber.Ctx) string
	logger  *zap.Logger
	now     func() time.Time
}

func New(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(*fiber.Ctx) string { return "global" }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		burst:   float64(cfg.RequestsPerMinute),
		perSec:  float64(cfg.RequestsPerMinute) / 60,
		keyFunc: cfg.KeyFunc,
		logger:  cfg.Logger,
		now:     cfg.now,
	}
}

func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := l.keyFunc(c)
		ok, retryAfter := l.allow(key)
		if !ok {
			l.logger.Warn("Render rate limit exceeded",
				zap.String("key", key),
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
			)
			c.Set(fiber.HeaderRetryAfter, retryAfterSeconds(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many renders, try again later",
			})
		}
		return c.Next()
	}
}

func (l *Limiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastRefill: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.perSec
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	missing := 1 - b.tokens
	return false, time.Duration(missing / l.perSec * float64(time.Second))
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if d > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
