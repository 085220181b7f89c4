package models

import (
	"strings"
	"time"
)

// UserRole is a closed set; every switch over it must cover both roles.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleBranch UserRole = "BRANCH"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleBranch:
		return true
	}
	return false
}

// ParseUserRole accepts any casing ("admin", "Branch", ...).
func ParseUserRole(s string) (UserRole, bool) {
	r := UserRole(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

type User struct {
	ID           uint `gorm:"primaryKey"`
	BranchID     uint `gorm:"index;not null"`
	Branch       *Branch
	Username     string   `gorm:"size:100;not null;index"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	IsRemoved    bool     `gorm:"not null;default:false;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
