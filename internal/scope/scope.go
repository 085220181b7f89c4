// Package scope resolves which branches an authenticated caller may see.
//
// ADMIN callers see every branch; BRANCH callers see only their own. Anything
// else, including a BRANCH caller without a branch, sees nothing.
package scope

import (
	"fmt"

	"electric-inventory/internal/errs"
	"electric-inventory/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Fiber locals keys set by the JWT middleware.
const (
	CtxUserIDKey   = "user_id"
	CtxUsernameKey = "username"
	CtxUserRoleKey = "user_role"
	CtxBranchIDKey = "branch_id"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID   uint
	Username string
	Role     models.UserRole
	BranchID *uint
}

type Kind int

const (
	KindNone Kind = iota
	KindAll
	KindBranch
)

func (k Kind) String() string {
	switch k {
	case KindAll:
		return "all"
	case KindBranch:
		return "branch"
	default:
		return "none"
	}
}

// Filter is a branch visibility predicate. The zero value matches nothing.
type Filter struct {
	kind     Kind
	branchID uint
}

func All() Filter { return Filter{kind: KindAll} }

func Branch(id uint) Filter { return Filter{kind: KindBranch, branchID: id} }

func None() Filter { return Filter{kind: KindNone} }

func (f Filter) Kind() Kind { return f.kind }

func (f Filter) BranchID() uint { return f.branchID }

// Resolve maps an identity to its filter.
func Resolve(id Identity) Filter {
	switch id.Role {
	case models.RoleAdmin:
		return All()
	case models.RoleBranch:
		if id.BranchID == nil {
			return None()
		}
		return Branch(*id.BranchID)
	default:
		return None()
	}
}

// Apply restricts db to rows whose column matches the filter.
func (f Filter) Apply(db *gorm.DB, column string) *gorm.DB {
	switch f.kind {
	case KindAll:
		return db
	case KindBranch:
		return db.Where(fmt.Sprintf("%s = ?", column), f.branchID)
	default:
		return db.Where("1 = 0")
	}
}

// Allows reports whether a record owned by branchID is visible.
// Records without a branch are visible to ADMIN callers only.
func (f Filter) Allows(branchID *uint) bool {
	switch f.kind {
	case KindAll:
		return true
	case KindBranch:
		return branchID != nil && *branchID == f.branchID
	default:
		return false
	}
}

func (f Filter) String() string {
	if f.kind == KindBranch {
		return fmt.Sprintf("branch(%d)", f.branchID)
	}
	return f.kind.String()
}

// Store puts the identity into the request locals.
func Store(c *fiber.Ctx, id Identity) {
	c.Locals(CtxUserIDKey, id.UserID)
	c.Locals(CtxUsernameKey, id.Username)
	c.Locals(CtxUserRoleKey, id.Role)
	c.Locals(CtxBranchIDKey, id.BranchID)
}

// FromCtx reads the identity stored by the JWT middleware.
func FromCtx(c *fiber.Ctx) (Identity, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok || userID == 0 {
		return Identity{}, errs.ErrUnauthorized
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return Identity{}, errs.ErrUnauthorized
	}
	username, _ := c.Locals(CtxUsernameKey).(string)
	branchID, _ := c.Locals(CtxBranchIDKey).(*uint)

	return Identity{
		UserID:   userID,
		Username: username,
		Role:     role,
		BranchID: branchID,
	}, nil
}

// FilterFromCtx is Resolve(FromCtx(c)).
func FilterFromCtx(c *fiber.Ctx) (Identity, Filter, error) {
	id, err := FromCtx(c)
	if err != nil {
		return Identity{}, None(), err
	}
	return id, Resolve(id), nil
}
