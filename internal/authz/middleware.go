package authz

import (
	"electric-inventory/internal/scope"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Middleware rejects callers whose role may not use the requested route.
// It must run after the JWT middleware.
func Middleware(e *Enforcer, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "role information is missing")
		}

		allowed, err := e.Allowed(string(id.Role), c.Path(), c.Method())
		if err != nil {
			return err
		}
		if !allowed {
			logger.Info("access denied",
				zap.Uint("user_id", id.UserID),
				zap.String("role", string(id.Role)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)
			return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
		}
		return c.Next()
	}
}
