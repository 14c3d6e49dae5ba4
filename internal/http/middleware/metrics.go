package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
)

// Metrics observes request latency by route pattern, so /:slug stays one series.
func Metrics(metrics *infraPrometheus.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if asFiberError(err, &fe) {
			status = fe.Code
		}

		metrics.ObserveRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}

func asFiberError(err error, target **fiber.Error) bool {
	return err != nil && errors.As(err, target)
}
