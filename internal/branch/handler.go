package branch

import (
	"electric-inventory/internal/models"
	"electric-inventory/internal/response"
	"electric-inventory/internal/scope"

	"github.com/gofiber/fiber/v2"
)

type BranchResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	IsRemoved bool   `json:"isRemoved"`
	CreatedAt string `json:"createdAt"`
}

type BranchUserResponse struct {
	ID        uint            `json:"id"`
	Username  string          `json:"username"`
	Role      models.UserRole `json:"role"`
	CreatedAt string          `json:"createdAt"`
}

func ToResponse(b *models.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		Phone:     b.Phone,
		IsRemoved: b.IsRemoved,
		CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid branch id")
	}
	return uint(id), nil
}

// ----------------------------------------
// BRANCH CRUD
// ----------------------------------------

// POST /api/branch
func CreateBranchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}

		var body CreateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		b, err := svc.Create(c.UserContext(), body, id.UserID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(response.Envelope{
			Success: true,
			Message: "Branch created successfully",
			Data:    ToResponse(b),
		})
	}
}

// GET /api/branch
func ListBranchesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branches, err := svc.List(c.UserContext())
		if err != nil {
			return err
		}

		res := make([]BranchResponse, 0, len(branches))
		for i := range branches {
			res = append(res, ToResponse(&branches[i]))
		}
		return response.OK(c, res)
	}
}

// GET /api/branch/:id
func GetBranchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bid, err := parseID(c)
		if err != nil {
			return err
		}

		b, err := svc.Get(c.UserContext(), bid)
		if err != nil {
			return err
		}
		return response.OK(c, ToResponse(b))
	}
}

// PATCH /api/branch/:id
func UpdateBranchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}
		bid, err := parseID(c)
		if err != nil {
			return err
		}

		var body UpdateInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		b, err := svc.Update(c.UserContext(), bid, body, id.UserID)
		if err != nil {
			return err
		}
		return c.JSON(response.Envelope{
			Success: true,
			Message: "Branch updated successfully",
			Data:    ToResponse(b),
		})
	}
}

// DELETE /api/branch/:id
func DeleteBranchHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}
		bid, err := parseID(c)
		if err != nil {
			return err
		}

		b, err := svc.Remove(c.UserContext(), bid, id.UserID)
		if err != nil {
			return err
		}
		return c.JSON(response.Envelope{
			Success: true,
			Message: "Branch removed successfully",
			Data:    ToResponse(b),
		})
	}
}

// ----------------------------------------
// BRANCH USERS
// GET /api/branch/:id/users
// ----------------------------------------

func ListBranchUsersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bid, err := parseID(c)
		if err != nil {
			return err
		}

		users, err := svc.Users(c.UserContext(), bid)
		if err != nil {
			return err
		}

		res := make([]BranchUserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, BranchUserResponse{
				ID:        u.ID,
				Username:  u.Username,
				Role:      u.Role,
				CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return response.OK(c, res)
	}
}

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/branch", CreateBranchHandler(svc))
	r.Get("/branch", ListBranchesHandler(svc))
	r.Get("/branch/:id", GetBranchHandler(svc))
	r.Patch("/branch/:id", UpdateBranchHandler(svc))
	r.Delete("/branch/:id", DeleteBranchHandler(svc))
	r.Get("/branch/:id/users", ListBranchUsersHandler(svc))
}
