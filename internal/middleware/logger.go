package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func ZapLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", latency),
		}
		if uid, ok := c.Locals("user_id").(string); ok {
			fields = append(fields, zap.String("user_id", uid))
		}

		if err != nil {
			logger.Error("request failed", append(fields, zap.Error(err))...)
		} else {
			logger.Info("request completed", fields...)
		}
		return err
	}
}
