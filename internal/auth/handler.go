package auth

import (
	"electric-inventory/internal/response"
	"electric-inventory/internal/scope"
	"electric-inventory/internal/user"
	"electric-inventory/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type LoginResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresIn   int64             `json:"expires_in"`
	User        user.UserResponse `json:"user"`
}

// POST /api/auth/login
func LoginHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validation.ValidateStruct(body); err != nil {
			return err
		}

		token, u, err := svc.Login(c.UserContext(), body)
		if err != nil {
			return err
		}

		return response.OK(c, LoginResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(svc.tokens.TTL().Seconds()),
			User:        user.ToResponse(u),
		})
	}
}

// POST /api/auth/register
func RegisterHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body user.CreateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		u, err := svc.Register(c.UserContext(), body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(response.Envelope{
			Success: true,
			Message: "User registered successfully",
			Data:    user.ToResponse(u),
		})
	}
}

// GET /api/auth/me
func MeHandler(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}

		u, err := users.Get(c.UserContext(), id.UserID)
		if err != nil {
			return err
		}
		return response.OK(c, user.ToResponse(u))
	}
}

// RegisterPublicRoutes mounts the endpoints that need no token.
func RegisterPublicRoutes(r fiber.Router, svc *Service, limiter *LoginLimiter) {
	r.Post("/auth/login", limiter.Middleware(), LoginHandler(svc))
	r.Post("/auth/register", limiter.Middleware(), RegisterHandler(svc))
}
