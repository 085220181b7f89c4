package server

import (
	"errors"

	"electric-inventory/internal/errs"
	"electric-inventory/internal/response"
	"electric-inventory/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// sentinelStatus maps service sentinels to HTTP codes, checked in order.
var sentinelStatus = []struct {
	err    error
	status int
}{
	{errs.ErrValidation, fiber.StatusBadRequest},
	{errs.ErrNotFound, fiber.StatusNotFound},
	{errs.ErrConflict, fiber.StatusConflict},
	{errs.ErrUnauthorized, fiber.StatusUnauthorized},
	{errs.ErrForbidden, fiber.StatusForbidden},
	{errs.ErrRateLimited, fiber.StatusTooManyRequests},
}

// errorHandler renders every error as the response envelope. Unknown errors
// are logged and hidden behind a generic 500.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			return response.Fail(c, fiber.StatusBadRequest, "validation failed", verr.Fields())
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return response.Fail(c, ferr.Code, ferr.Message, nil)
		}

		for _, s := range sentinelStatus {
			if errors.Is(err, s.err) {
				return response.Fail(c, s.status, err.Error(), nil)
			}
		}

		logger.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return response.Fail(c, fiber.StatusInternalServerError, "internal server error", nil)
	}
}
