package user

import (
	"electric-inventory/internal/models"
	"electric-inventory/internal/response"
	"electric-inventory/internal/scope"

	"github.com/gofiber/fiber/v2"
)

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        uint            `json:"id"`
	Username  string          `json:"username"`
	Role      models.UserRole `json:"role"`
	BranchID  uint            `json:"branchId"`
	Branch    *string         `json:"branch"`
	IsRemoved bool            `json:"isRemoved"`
	CreatedAt string          `json:"createdAt"`
}

func ToResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		BranchID:  u.BranchID,
		IsRemoved: u.IsRemoved,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if u.Branch != nil {
		name := u.Branch.Name
		resp.Branch = &name
	}
	return resp
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	return uint(id), nil
}

// POST /api/users
func CreateUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}

		var body CreateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		u, err := svc.Create(c.UserContext(), body, id.UserID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(response.Envelope{
			Success: true,
			Message: "User created successfully",
			Data:    ToResponse(u),
		})
	}
}

// GET /api/users
func ListUsersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		users, err := svc.List(c.UserContext())
		if err != nil {
			return err
		}

		res := make([]UserResponse, 0, len(users))
		for i := range users {
			res = append(res, ToResponse(&users[i]))
		}
		return c.JSON(response.Envelope{
			Success: true,
			Message: "Users retrieved successfully",
			Data:    res,
		})
	}
}

// GET /api/users/:id
func GetUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, err := parseID(c)
		if err != nil {
			return err
		}

		u, err := svc.Get(c.UserContext(), uid)
		if err != nil {
			return err
		}
		return response.OK(c, ToResponse(u))
	}
}

// PATCH /api/users/:id
func UpdateUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}
		uid, err := parseID(c)
		if err != nil {
			return err
		}

		var body UpdateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		u, err := svc.Update(c.UserContext(), uid, body, id.UserID)
		if err != nil {
			return err
		}
		return c.JSON(response.Envelope{
			Success: true,
			Message: "User updated successfully",
			Data:    ToResponse(u),
		})
	}
}

// DELETE /api/users/:id
func DeleteUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}
		uid, err := parseID(c)
		if err != nil {
			return err
		}
		if uid == id.UserID {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot remove your own account")
		}

		if _, err := svc.Remove(c.UserContext(), uid, id.UserID); err != nil {
			return err
		}
		return response.Message(c, "User deleted successfully")
	}
}

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/users", CreateUserHandler(svc))
	r.Get("/users", ListUsersHandler(svc))
	r.Get("/users/:id", GetUserHandler(svc))
	r.Patch("/users/:id", UpdateUserHandler(svc))
	r.Delete("/users/:id", DeleteUserHandler(svc))
}
