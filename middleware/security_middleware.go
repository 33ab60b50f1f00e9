package middleware

import (
	"multishop-server/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type SecurityMiddleware struct {
	cfg config.HTTP
}

func NewSecurityMiddleware(cfg config.HTTP) *SecurityMiddleware {
	return &SecurityMiddleware{cfg: cfg}
}

// RateLimiter 按 IP 限流，用于登录与下单
func (sm *SecurityMiddleware) RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        sm.cfg.RateLimitMax,
		Expiration: sm.cfg.RateLimitWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "请求过于频繁，请稍后再试",
			})
		},
	})
}
