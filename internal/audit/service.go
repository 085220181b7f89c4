package audit

import (
	"context"
	"fmt"

	"electric-inventory/internal/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	EntityBranch   = "branch"
	EntityUser     = "user"
	EntityPurchase = "purchase"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Entry struct {
	BranchID    *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Writer persists audit entries. A nil *Writer discards everything.
type Writer struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewWriter(db *gorm.DB, logger *zap.Logger) *Writer {
	return &Writer{db: db, logger: logger}
}

// WithTx returns a writer whose entries commit or roll back with tx.
func (w *Writer) WithTx(tx *gorm.DB) *Writer {
	if w == nil {
		return nil
	}
	return &Writer{db: tx, logger: w.logger}
}

// Write stores e. Failures are logged, never returned.
func (w *Writer) Write(ctx context.Context, e Entry) {
	if w == nil {
		return
	}

	// jsonb rejects the empty string
	beforeStr := "null"
	afterStr := "null"
	if e.Before != nil {
		if b, err := json.Marshal(e.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			afterStr = string(b)
		}
	}

	userName := e.UserName
	if userName == "" {
		var u models.User
		if err := w.db.WithContext(ctx).Select("username").First(&u, e.UserID).Error; err == nil {
			userName = u.Username
		}
	}

	row := models.AuditLog{
		BranchID:    e.BranchID,
		UserID:      e.UserID,
		UserName:    userName,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := w.db.WithContext(ctx).Create(&row).Error; err != nil {
		w.logger.Warn("audit log write failed",
			zap.String("entity_type", e.EntityType),
			zap.Uint("entity_id", e.EntityID),
			zap.String("action", string(e.Action)),
			zap.Error(err),
		)
	}
}

type Query struct {
	EntityType string
	EntityID   uint
	BranchID   *uint
	UserID     uint
	Limit      int
}

// List returns the newest entries first.
func (w *Writer) List(ctx context.Context, q Query) ([]models.AuditLog, error) {
	dbq := w.db.WithContext(ctx).Model(&models.AuditLog{})

	if q.BranchID != nil {
		dbq = dbq.Where("branch_id = ?", *q.BranchID)
	}
	if q.UserID > 0 {
		dbq = dbq.Where("user_id = ?", q.UserID)
	}
	if q.EntityType != "" {
		dbq = dbq.Where("entity_type = ?", q.EntityType)
	}
	if q.EntityID > 0 {
		dbq = dbq.Where("entity_id = ?", q.EntityID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var logs []models.AuditLog
	if err := dbq.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
