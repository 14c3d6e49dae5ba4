package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORS answers preflight requests and allows the listed origins; an empty list allows any.
func CORS(allowedOrigins ...string) fiber.Handler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		switch {
		case allowAll:
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		case origin != "" && allowed[origin]:
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Vary(fiber.HeaderOrigin)
		}
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept, X-Request-ID")
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, X-Request-ID")
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
