// Package user is the credential store: branch-assigned users with bcrypt
// password hashes. Usernames are unique per branch, not globally.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"electric-inventory/internal/audit"
	"electric-inventory/internal/branch"
	"electric-inventory/internal/crypto"
	"electric-inventory/internal/errs"
	"electric-inventory/internal/models"
	"electric-inventory/internal/validation"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BranchFinder resolves branch names for user assignment.
type BranchFinder interface {
	GetByName(ctx context.Context, name string) (*models.Branch, error)
}

type CreateInput struct {
	Username   string `json:"username" validate:"required,max=100"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Role       string `json:"role" validate:"required"`
	BranchName string `json:"branchName" validate:"required"`
}

// UpdateInput leaves nil fields unchanged. An empty password keeps the
// current one.
type UpdateInput struct {
	Username   *string `json:"username" validate:"omitempty,max=100"`
	Password   *string `json:"password" validate:"omitempty,max=72"`
	Role       *string `json:"role"`
	BranchName *string `json:"branchName"`
}

type Service struct {
	db       *gorm.DB
	branches BranchFinder
	audit    *audit.Writer
	logger   *zap.Logger
}

func NewService(db *gorm.DB, branches BranchFinder, auditWriter *audit.Writer, logger *zap.Logger) *Service {
	return &Service{db: db, branches: branches, audit: auditWriter, logger: logger}
}

func parseRole(raw string) (models.UserRole, error) {
	role, ok := models.ParseUserRole(raw)
	if !ok {
		return "", validation.NewError("role", "oneof", "role must be one of: ADMIN, BRANCH")
	}
	return role, nil
}

// checkPasswordBytes rejects passwords bcrypt cannot hash. The max tag
// counts runes, bcrypt counts bytes.
func checkPasswordBytes(password string) error {
	if len(password) > crypto.MaxPasswordBytes {
		return validation.NewError("password", "max",
			fmt.Sprintf("password must be at most %d bytes", crypto.MaxPasswordBytes))
	}
	return nil
}

// validate checks in without touching the database. Username must already
// be trimmed.
func (in CreateInput) validate() (models.UserRole, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return "", err
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return "", err
	}
	if err := checkPasswordBytes(in.Password); err != nil {
		return "", err
	}
	return role, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uint) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	role, err := in.validate()
	if err != nil {
		return nil, err
	}

	b, err := s.branches.GetByName(ctx, in.BranchName)
	if err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		BranchID:     b.ID,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUsernameFree(tx, u.Username, u.BranchID, 0); err != nil {
			return err
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return nil, translate(err, "create user")
	}
	u.Branch = b

	if actorID == 0 {
		actorID = u.ID
	}
	s.audit.Write(ctx, audit.Entry{
		BranchID:    &u.BranchID,
		UserID:      actorID,
		EntityType:  audit.EntityUser,
		EntityID:    u.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("user created: %s (%s)", u.Username, u.Role),
		After:       ToResponse(&u),
	})
	s.logger.Info("user created",
		zap.Uint("user_id", u.ID),
		zap.String("username", u.Username),
		zap.String("role", string(u.Role)),
		zap.Uint("branch_id", u.BranchID),
	)
	return &u, nil
}

// CreateWithBranch creates the user and, when it does not exist yet, the
// branch named by in.BranchName in one transaction. A new branch is
// attributed to the new user.
func (s *Service) CreateWithBranch(ctx context.Context, in CreateInput, branches *branch.Service) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.BranchName = strings.TrimSpace(in.BranchName)
	if _, err := in.validate(); err != nil {
		return nil, err
	}

	var created *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		aw := s.audit.WithTx(tx)
		txBranches := branches.WithTx(tx, nil)

		b, err := txBranches.GetByName(ctx, in.BranchName)
		newBranch := errors.Is(err, errs.ErrNotFound)
		if newBranch {
			b, err = txBranches.Create(ctx, branch.CreateInput{Name: in.BranchName}, 0)
		}
		if err != nil {
			return err
		}

		txUsers := &Service{db: tx, branches: txBranches, audit: aw, logger: s.logger}
		u, err := txUsers.Create(ctx, in, 0)
		if err != nil {
			return err
		}

		if newBranch {
			aw.Write(ctx, audit.Entry{
				BranchID:    &b.ID,
				UserID:      u.ID,
				EntityType:  audit.EntityBranch,
				EntityID:    b.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("branch created: %s", b.Name),
				After:       branch.ToResponse(b),
			})
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Preload("Branch").
		Where("is_removed = ?", false).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns a user that is not removed.
func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Preload("Branch").
		Where("id = ? AND is_removed = ?", id, false).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

// FindActiveByUsername returns every active user with that username, oldest
// first. A non-empty branchName restricts the search to that branch.
func (s *Service) FindActiveByUsername(ctx context.Context, username, branchName string) ([]models.User, error) {
	q := s.db.WithContext(ctx).
		Preload("Branch").
		Where("username = ? AND is_removed = ?", strings.TrimSpace(username), false)

	if branchName = strings.TrimSpace(branchName); branchName != "" {
		b, err := s.branches.GetByName(ctx, branchName)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		q = q.Where("branch_id = ?", b.ID)
	}

	var users []models.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}

// CountByRole counts active users with the given role.
func (s *Service) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND is_removed = ?", role, false).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput, actorID uint) (*models.User, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := ToResponse(u)

	username := u.Username
	branchID := u.BranchID
	updates := map[string]interface{}{}

	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, validation.NewError("username", "required", "username is required")
		}
		updates["username"] = username
	}
	if in.Role != nil {
		role, err := parseRole(*in.Role)
		if err != nil {
			return nil, err
		}
		updates["role"] = role
	}
	if in.BranchName != nil && strings.TrimSpace(*in.BranchName) != "" {
		b, err := s.branches.GetByName(ctx, *in.BranchName)
		if err != nil {
			return nil, err
		}
		branchID = b.ID
		updates["branch_id"] = branchID
	}
	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < 6 {
			return nil, validation.NewError("password", "min", "password must be at least 6 characters")
		}
		if err := checkPasswordBytes(*in.Password); err != nil {
			return nil, err
		}
		hash, err := crypto.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		return u, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if username != u.Username || branchID != u.BranchID {
			if err := ensureUsernameFree(tx, username, branchID, id); err != nil {
				return err
			}
		}
		return tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, translate(err, "update user")
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Write(ctx, audit.Entry{
		BranchID:    &updated.BranchID,
		UserID:      actorID,
		EntityType:  audit.EntityUser,
		EntityID:    updated.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("user updated: %s", updated.Username),
		Before:      before,
		After:       ToResponse(updated),
	})
	return updated, nil
}

// Remove soft-deletes a user; its purchases stay attributed to it.
func (s *Service) Remove(ctx context.Context, id uint, actorID uint) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_removed = ?", id, false).
		Update("is_removed", true)
	if res.Error != nil {
		return nil, fmt.Errorf("remove user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d: %w", id, errs.ErrNotFound)
	}
	before := ToResponse(u)
	u.IsRemoved = true

	s.audit.Write(ctx, audit.Entry{
		BranchID:    &u.BranchID,
		UserID:      actorID,
		EntityType:  audit.EntityUser,
		EntityID:    u.ID,
		Action:      models.AuditActionDelete,
		Description: fmt.Sprintf("user removed: %s", u.Username),
		Before:      before,
		After:       ToResponse(u),
	})
	return u, nil
}

func ensureUsernameFree(tx *gorm.DB, username string, branchID, selfID uint) error {
	var count int64
	q := tx.Model(&models.User{}).
		Where("username = ? AND branch_id = ? AND is_removed = ?", username, branchID, false)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("username %q already exists in this branch: %w", username, errs.ErrConflict)
	}
	return nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, errs.ErrConflict):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("username already exists in this branch: %w", errs.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
