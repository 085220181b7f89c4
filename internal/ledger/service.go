// Package ledger records stock-in purchases. Rows are never hard-deleted and
// every read goes through a scope.Filter.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"electric-inventory/internal/audit"
	"electric-inventory/internal/errs"
	"electric-inventory/internal/metrics"
	"electric-inventory/internal/models"
	"electric-inventory/internal/scope"
	"electric-inventory/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxScale and maxAmount match numeric(10,2).
const maxScale = 2

var maxAmount = decimal.New(1, 8)

// NewPurchase is the caller-supplied part of a purchase. Branch and user are
// never taken from the caller.
type NewPurchase struct {
	ProductName       string          `json:"productName" validate:"required,max=255"`
	Quantity          decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit              string          `json:"unit" validate:"required,max=50"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit" validate:"gt=0"`
	TotalPrice        decimal.Decimal `json:"totalPrice" validate:"gt=0"`
	LowStockThreshold int             `json:"lowStockThreshold" validate:"gte=0"`
	Brand             string          `json:"brand" validate:"required,max=255"`
}

// Validate checks field ranges and that totalPrice equals
// quantity * pricePerUnit rounded to cents.
func (p NewPurchase) Validate() error {
	if err := validation.ValidateStruct(p); err != nil {
		return err
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"quantity", p.Quantity},
		{"pricePerUnit", p.PricePerUnit},
		{"totalPrice", p.TotalPrice},
	} {
		if !f.value.Equal(f.value.Round(maxScale)) {
			return validation.NewError(f.name, "scale", fmt.Sprintf("%s must have at most 2 decimal places", f.name))
		}
		if f.value.GreaterThanOrEqual(maxAmount) {
			return validation.NewError(f.name, "lt", fmt.Sprintf("%s must be less than %s", f.name, maxAmount))
		}
	}
	expected := p.Quantity.Mul(p.PricePerUnit).Round(maxScale)
	if !p.TotalPrice.Equal(expected) {
		return validation.NewError("totalPrice", "total",
			fmt.Sprintf("totalPrice must equal quantity * pricePerUnit (%s)", expected.StringFixed(maxScale)))
	}
	return nil
}

type Service struct {
	db     *gorm.DB
	audit  *audit.Writer
	logger *zap.Logger
}

func NewService(db *gorm.DB, auditWriter *audit.Writer, logger *zap.Logger) *Service {
	return &Service{db: db, audit: auditWriter, logger: logger}
}

// Record stores a purchase stamped with the acting user's current branch.
func (s *Service) Record(ctx context.Context, in NewPurchase, actingUserID uint) (*models.Purchase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_removed = ?", actingUserID, false).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("acting user %d: %w", actingUserID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load acting user: %w", err)
	}

	var branchID *uint
	if user.BranchID != 0 {
		b := user.BranchID
		branchID = &b
	}

	p := models.Purchase{
		ProductName:       in.ProductName,
		Quantity:          in.Quantity,
		Unit:              in.Unit,
		PricePerUnit:      in.PricePerUnit,
		TotalPrice:        in.TotalPrice,
		LowStockThreshold: in.LowStockThreshold,
		Brand:             in.Brand,
		UserID:            user.ID,
		BranchID:          branchID,
		CreatedBy:         &user.ID,
		IsRemoved:         false,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	created, err := s.load(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	label := "branch"
	if branchID == nil {
		label = "none"
	}
	metrics.PurchasesRecorded.WithLabelValues(label).Inc()

	s.audit.Write(ctx, audit.Entry{
		BranchID:    created.BranchID,
		UserID:      user.ID,
		UserName:    user.Username,
		EntityType:  audit.EntityPurchase,
		EntityID:    created.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("purchase recorded: %s x %s", created.ProductName, created.Quantity.String()),
		After:       ToResponse(created),
	})

	s.logger.Debug("purchase recorded",
		zap.Uint("purchase_id", created.ID),
		zap.Uint("user_id", user.ID),
		zap.String("product", created.ProductName),
	)
	return created, nil
}

// List returns all non-removed purchases visible through f, oldest first.
func (s *Service) List(ctx context.Context, f scope.Filter) ([]models.Purchase, error) {
	q := s.db.WithContext(ctx).
		Preload("Branch").
		Where("is_removed = ?", false)
	q = f.Apply(q, "branch_id")

	var purchases []models.Purchase
	if err := q.Order("created_at ASC").Order("id ASC").Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

// Get returns a non-removed purchase. Purchases outside f are reported as
// not found.
func (s *Service) Get(ctx context.Context, id uint, f scope.Filter) (*models.Purchase, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsRemoved || !f.Allows(p.BranchID) {
		return nil, fmt.Errorf("purchase %d: %w", id, errs.ErrNotFound)
	}
	return p, nil
}

// Update overwrites every caller-editable field of a purchase. Branch, user
// and creation time are kept.
func (s *Service) Update(ctx context.Context, id uint, in NewPurchase, f scope.Filter, actorID uint) (*models.Purchase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id, f)
	if err != nil {
		return nil, err
	}
	before := ToResponse(existing)

	res := s.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND is_removed = ?", id, false).
		Updates(map[string]interface{}{
			"product_name":        in.ProductName,
			"quantity":            in.Quantity,
			"unit":                in.Unit,
			"price_per_unit":      in.PricePerUnit,
			"total_price":         in.TotalPrice,
			"low_stock_threshold": in.LowStockThreshold,
			"brand":               in.Brand,
			"updated_by":          actorID,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update purchase: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("purchase %d: %w", id, errs.ErrNotFound)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Write(ctx, audit.Entry{
		BranchID:    updated.BranchID,
		UserID:      actorID,
		EntityType:  audit.EntityPurchase,
		EntityID:    updated.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("purchase corrected: %s", updated.ProductName),
		Before:      before,
		After:       ToResponse(updated),
	})
	return updated, nil
}

// SoftRemove hides a purchase from listings and aggregation. Removing an
// absent, already removed or out-of-scope purchase is ErrNotFound.
func (s *Service) SoftRemove(ctx context.Context, id uint, f scope.Filter, actorID uint) (*models.Purchase, error) {
	existing, err := s.Get(ctx, id, f)
	if err != nil {
		return nil, err
	}
	before := ToResponse(existing)

	res := s.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND is_removed = ?", id, false).
		Updates(map[string]interface{}{
			"is_removed": true,
			"updated_by": actorID,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("remove purchase: %w", res.Error)
	}
	// lost a race with another remove
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("purchase %d: %w", id, errs.ErrNotFound)
	}

	existing.IsRemoved = true
	metrics.PurchasesRemoved.Inc()

	s.audit.Write(ctx, audit.Entry{
		BranchID:    existing.BranchID,
		UserID:      actorID,
		EntityType:  audit.EntityPurchase,
		EntityID:    existing.ID,
		Action:      models.AuditActionDelete,
		Description: fmt.Sprintf("purchase removed: %s", existing.ProductName),
		Before:      before,
		After:       ToResponse(existing),
	})
	return existing, nil
}

func (s *Service) load(ctx context.Context, id uint) (*models.Purchase, error) {
	var p models.Purchase
	err := s.db.WithContext(ctx).Preload("Branch").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("purchase %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load purchase: %w", err)
	}
	return &p, nil
}
