package api

import (
	"errors"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func JSONError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// statusFor maps a domain error kind to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrDependency):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every error returned by a handler. Internal detail is logged, never sent.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return JSONError(c, fe.Code, fe.Message)
		}

		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		if status == fiber.StatusInternalServerError {
			return JSONError(c, status, "internal server error")
		}
		return JSONError(c, status, err.Error())
	}
}
