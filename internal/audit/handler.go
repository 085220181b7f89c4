package audit

import (
	"electric-inventory/internal/models"
	"electric-inventory/internal/response"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"createdAt"`
	BranchID    *uint              `json:"branchId"`
	UserID      uint               `json:"userId"`
	UserName    string             `json:"userName"`
	EntityType  string             `json:"entityType"`
	EntityID    uint               `json:"entityId"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  json.RawMessage    `json:"beforeData"`
	AfterData   json.RawMessage    `json:"afterData"`
}

func rawOrNull(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

// GET /api/audit-logs?entity_type=purchase&entity_id=1&branch_id=1&user_id=2&limit=50
func ListAuditLogsHandler(w *Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := Query{
			EntityType: c.Query("entity_type"),
			EntityID:   uint(c.QueryInt("entity_id", 0)),
			UserID:     uint(c.QueryInt("user_id", 0)),
			Limit:      c.QueryInt("limit", 0),
		}
		if bid := c.QueryInt("branch_id", 0); bid > 0 {
			b := uint(bid)
			q.BranchID = &b
		}

		logs, err := w.List(c.UserContext(), q)
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				BranchID:    l.BranchID,
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				BeforeData:  rawOrNull(l.BeforeData),
				AfterData:   rawOrNull(l.AfterData),
			})
		}

		return response.OK(c, resp)
	}
}
