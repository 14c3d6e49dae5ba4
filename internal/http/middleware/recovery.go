package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Recovery turns a panic in a later handler into a logged 500 response.
func Recovery(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			fields := []zap.Field{
				zap.Error(fmt.Errorf("panic recovered: %v", r)),
				zap.ByteString("stack", debug.Stack()),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			}
			if rid := GetRequestID(c); rid != "" {
				fields = append(fields, zap.String("request_id", rid))
			}
			logger.Error("panic recovered", fields...)

			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		}()

		return c.Next()
	}
}
