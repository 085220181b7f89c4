package ledger

import (
	"time"

	"electric-inventory/internal/models"
	"electric-inventory/internal/response"
	"electric-inventory/internal/scope"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type PurchaseResponse struct {
	ID                uint            `json:"id"`
	ProductName       string          `json:"productName"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              string          `json:"unit"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	Brand             string          `json:"brand"`
	UserID            uint            `json:"userId"`
	BranchID          *uint           `json:"branchId"`
	BranchName        string          `json:"branchName,omitempty"`
	IsRemoved         bool            `json:"isRemoved"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func ToResponse(p *models.Purchase) PurchaseResponse {
	resp := PurchaseResponse{
		ID:                p.ID,
		ProductName:       p.ProductName,
		Quantity:          p.Quantity,
		Unit:              p.Unit,
		PricePerUnit:      p.PricePerUnit,
		TotalPrice:        p.TotalPrice,
		LowStockThreshold: p.LowStockThreshold,
		Brand:             p.Brand,
		UserID:            p.UserID,
		BranchID:          p.BranchID,
		IsRemoved:         p.IsRemoved,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.Branch != nil {
		resp.BranchName = p.Branch.Name
	}
	return resp
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid purchase id")
	}
	return uint(id), nil
}

// POST /api/purchase
// Any branchId in the body is ignored; the caller's branch is used.
func CreatePurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := scope.FromCtx(c)
		if err != nil {
			return err
		}

		var body NewPurchase
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		p, err := svc.Record(c.UserContext(), body, id.UserID)
		if err != nil {
			return err
		}
		return response.Created(c, ToResponse(p))
	}
}

// GET /api/purchase
func ListPurchasesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, f, err := scope.FilterFromCtx(c)
		if err != nil {
			return err
		}

		purchases, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}

		resp := make([]PurchaseResponse, 0, len(purchases))
		for i := range purchases {
			resp = append(resp, ToResponse(&purchases[i]))
		}
		return response.OK(c, resp)
	}
}

// GET /api/purchase/:id
func GetPurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, f, err := scope.FilterFromCtx(c)
		if err != nil {
			return err
		}
		pid, err := parseID(c)
		if err != nil {
			return err
		}

		p, err := svc.Get(c.UserContext(), pid, f)
		if err != nil {
			return err
		}
		return response.OK(c, ToResponse(p))
	}
}

// PATCH /api/purchase/:id
func UpdatePurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, f, err := scope.FilterFromCtx(c)
		if err != nil {
			return err
		}
		pid, err := parseID(c)
		if err != nil {
			return err
		}

		var body NewPurchase
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		p, err := svc.Update(c.UserContext(), pid, body, f, id.UserID)
		if err != nil {
			return err
		}
		return response.OK(c, ToResponse(p))
	}
}

// DELETE /api/purchase/:id
func DeletePurchaseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, f, err := scope.FilterFromCtx(c)
		if err != nil {
			return err
		}
		pid, err := parseID(c)
		if err != nil {
			return err
		}

		p, err := svc.SoftRemove(c.UserContext(), pid, f, id.UserID)
		if err != nil {
			return err
		}
		return c.JSON(response.Envelope{
			Success: true,
			Message: "purchase removed",
			Data:    ToResponse(p),
		})
	}
}

// RegisterRoutes mounts the purchase endpoints on r.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/purchase", CreatePurchaseHandler(svc))
	r.Get("/purchase", ListPurchasesHandler(svc))
	r.Get("/purchase/:id", GetPurchaseHandler(svc))
	r.Patch("/purchase/:id", UpdatePurchaseHandler(svc))
	r.Delete("/purchase/:id", DeletePurchaseHandler(svc))
}

