package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type Config struct {
	// MaxQueryLength caps the raw query string.
	MaxQueryLength int
	// AllowedMethods lists the methods the API answers; others get 405.
	AllowedMethods []string
	Logger         *zap.Logger
}

// Middleware rejects requests the read-only dashboard API never serves.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 1024
	}
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodDelete}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		allowed := false
		for _, m := range cfg.AllowedMethods {
			if c.Method() == m {
				allowed = true
				break
			}
		}
		if !allowed {
			return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
				"error": "Method not allowed",
			})
		}

		if len(c.Request().URI().QueryString()) > cfg.MaxQueryLength {
			cfg.Logger.Warn("Oversized query string",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusRequestURITooLong).JSON(fiber.Map{
				"error": "Query string exceeds maximum length",
			})
		}

		return c.Next()
	}
}

// Params validates the named route parameters as page or chart identifiers.
func Params(logger *zap.Logger, names ...string) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		for _, name := range names {
			value := sanitizeString(c.Params(name))
			if !IsIdentifier(value) {
				logger.Warn("Invalid route parameter",
					zap.String("ip", c.IP()),
					zap.String("param", name),
					zap.String("value", value),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid " + name + " identifier",
				})
			}
		}
		return c.Next()
	}
}

func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
