package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ToolKeyMiddleware authenticates the voice platform's tool and webhook
// requests with a static bearer key. The platform is the only caller of
// these routes; per-caller identity comes from the call id in the body, not
// from this key.
func ToolKeyMiddleware(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid authorization header")
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(apiKey)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid API key")
		}

		return c.Next()
	}
}
