// Package branch is the branch registry. Branches are soft-deleted and names
// are unique among branches that are not removed.
package branch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"electric-inventory/internal/audit"
	"electric-inventory/internal/errs"
	"electric-inventory/internal/models"
	"electric-inventory/internal/validation"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Address string `json:"address" validate:"max=255"`
	Phone   string `json:"phone" validate:"max=50"`
}

type UpdateInput struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
}

type Service struct {
	db     *gorm.DB
	audit  *audit.Writer
	logger *zap.Logger
}

func NewService(db *gorm.DB, auditWriter *audit.Writer, logger *zap.Logger) *Service {
	return &Service{db: db, audit: auditWriter, logger: logger}
}

// WithTx returns a copy bound to tx that writes audit entries through w.
// A nil w discards them.
func (s *Service) WithTx(tx *gorm.DB, w *audit.Writer) *Service {
	return &Service{db: tx, audit: w, logger: s.logger}
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uint) (*models.Branch, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	b := models.Branch{
		Name:    in.Name,
		Address: in.Address,
		Phone:   in.Phone,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, in.Name, 0); err != nil {
			return err
		}
		return tx.Create(&b).Error
	})
	if err != nil {
		return nil, translate(err, "create branch")
	}

	s.audit.Write(ctx, audit.Entry{
		BranchID:    &b.ID,
		UserID:      actorID,
		EntityType:  audit.EntityBranch,
		EntityID:    b.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("branch created: %s", b.Name),
		After:       ToResponse(&b),
	})
	s.logger.Info("branch created", zap.Uint("branch_id", b.ID), zap.String("name", b.Name))
	return &b, nil
}

// List returns branches that are not removed, in creation order.
func (s *Service) List(ctx context.Context) ([]models.Branch, error) {
	var branches []models.Branch
	if err := s.db.WithContext(ctx).
		Where("is_removed = ?", false).
		Order("id ASC").
		Find(&branches).Error; err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Branch, error) {
	var b models.Branch
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_removed = ?", id, false).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("branch %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load branch: %w", err)
	}
	return &b, nil
}

// GetByName looks up a branch that is not removed by exact name.
func (s *Service) GetByName(ctx context.Context, name string) (*models.Branch, error) {
	name = strings.TrimSpace(name)
	var b models.Branch
	err := s.db.WithContext(ctx).
		Where("name = ? AND is_removed = ?", name, false).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("branch %q: %w", name, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load branch: %w", err)
	}
	return &b, nil
}

// Update changes only the fields present in in.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput, actorID uint) (*models.Branch, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := ToResponse(b)

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validation.NewError("name", "required", "name is required")
		}
		updates["name"] = name
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if len(updates) == 0 {
		return b, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if name, ok := updates["name"].(string); ok {
			if err := ensureNameFree(tx, name, id); err != nil {
				return err
			}
		}
		return tx.Model(&models.Branch{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, translate(err, "update branch")
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Write(ctx, audit.Entry{
		BranchID:    &updated.ID,
		UserID:      actorID,
		EntityType:  audit.EntityBranch,
		EntityID:    updated.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("branch updated: %s", updated.Name),
		Before:      before,
		After:       ToResponse(updated),
	})
	return updated, nil
}

// Remove soft-deletes a branch. Branches with active users cannot be
// removed; purchases recorded for the branch are kept.
func (s *Service) Remove(ctx context.Context, id uint, actorID uint) (*models.Branch, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("branch_id = ? AND is_removed = ?", id, false).
		Count(&active).Error; err != nil {
		return nil, fmt.Errorf("count branch users: %w", err)
	}
	if active > 0 {
		return nil, fmt.Errorf("branch %q still has %d active users: %w", b.Name, active, errs.ErrConflict)
	}

	res := s.db.WithContext(ctx).Model(&models.Branch{}).
		Where("id = ? AND is_removed = ?", id, false).
		Update("is_removed", true)
	if res.Error != nil {
		return nil, fmt.Errorf("remove branch: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("branch %d: %w", id, errs.ErrNotFound)
	}
	b.IsRemoved = true

	s.audit.Write(ctx, audit.Entry{
		BranchID:    &b.ID,
		UserID:      actorID,
		EntityType:  audit.EntityBranch,
		EntityID:    b.ID,
		Action:      models.AuditActionDelete,
		Description: fmt.Sprintf("branch removed: %s", b.Name),
		Before:      ToResponse(b),
	})
	return b, nil
}

// Users lists the active users assigned to a branch.
func (s *Service) Users(ctx context.Context, id uint) ([]models.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("branch_id = ? AND is_removed = ?", id, false).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list branch users: %w", err)
	}
	return users, nil
}

func ensureNameFree(tx *gorm.DB, name string, selfID uint) error {
	var count int64
	q := tx.Model(&models.Branch{}).Where("name = ? AND is_removed = ?", name, false)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("branch name %q already exists: %w", name, errs.ErrConflict)
	}
	return nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, errs.ErrConflict):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("branch name already exists: %w", errs.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
