package auth

import (
	"context"
	"errors"
	"strings"

	"electric-inventory/internal/errs"
	"electric-inventory/internal/models"
	"electric-inventory/internal/scope"

	"github.com/gofiber/fiber/v2"
)

// UserLookup returns active users only.
type UserLookup interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// JWTMiddleware verifies the bearer token and stores the caller's identity.
// Role and branch are reloaded from the database so a removed user or a
// reassigned branch takes effect before the token expires.
func JWTMiddleware(tokens *TokenIssuer, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		u, err := users.Get(c.UserContext(), claims.UserID)
		if errors.Is(err, errs.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "user is no longer active")
		}
		if err != nil {
			return err
		}

		var branchID *uint
		if u.BranchID != 0 {
			b := u.BranchID
			branchID = &b
		}
		scope.Store(c, scope.Identity{
			UserID:   u.ID,
			Username: u.Username,
			Role:     u.Role,
			BranchID: branchID,
		})

		return c.Next()
	}
}
