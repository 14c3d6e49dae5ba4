package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP is the first X-Forwarded-For entry when present, else the socket address.
func ClientIP(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}
