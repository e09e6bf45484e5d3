package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/sigea-go-api/internal/utils"
)

// RateLimit limits requests per authenticated principal, falling back to the client IP.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	return newLimiter(identifier, max, window, func(c *fiber.Ctx) string {
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			return userID
		}
		return c.IP()
	})
}

// RateLimitByIP limits anonymous endpoints per client IP.
func RateLimitByIP(identifier string, max int, window time.Duration) fiber.Handler {
	return newLimiter(identifier, max, window, func(c *fiber.Ctx) string {
		return c.IP()
	})
}

func newLimiter(identifier string, max int, window time.Duration, key func(*fiber.Ctx) string) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return fmt.Sprintf("%s:%s", identifier, key(c))
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}
