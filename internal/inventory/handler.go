package inventory

import (
	"electric-inventory/internal/response"
	"electric-inventory/internal/scope"

	"github.com/gofiber/fiber/v2"
)

// narrowScope lets ADMIN callers restrict results with ?branch_id=.
// The query is ignored for everyone else.
func narrowScope(c *fiber.Ctx, f scope.Filter) (scope.Filter, error) {
	raw := c.Query("branch_id")
	if raw == "" || f.Kind() != scope.KindAll {
		return f, nil
	}
	bid := c.QueryInt("branch_id", 0)
	if bid <= 0 {
		return f, fiber.NewError(fiber.StatusBadRequest, "invalid branch_id")
	}
	return scope.Branch(uint(bid)), nil
}

// GET /api/inventory?level=low&branch_id=1
func ListInventoryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, f, err := scope.FilterFromCtx(c)
		if err != nil {
			return err
		}
		f, err = narrowScope(c, f)
		if err != nil {
			return err
		}

		var level StockLevel
		if raw := c.Query("level"); raw != "" {
			l, ok := ParseStockLevel(raw)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "level must be one of: low, warning, good")
			}
			level = l
		}

		snaps, err := svc.List(c.UserContext(), f, level)
		if err != nil {
			return err
		}
		return response.OK(c, snaps)
	}
}

// GET /api/inventory/summary?branch_id=1
func InventorySummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, f, err := scope.FilterFromCtx(c)
		if err != nil {
			return err
		}
		f, err = narrowScope(c, f)
		if err != nil {
			return err
		}

		sum, err := svc.Summary(c.UserContext(), f)
		if err != nil {
			return err
		}
		return response.OK(c, sum)
	}
}

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/inventory", ListInventoryHandler(svc))
	r.Get("/inventory/summary", InventorySummaryHandler(svc))
}
