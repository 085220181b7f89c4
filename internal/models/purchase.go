package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a single stock-in event. Rows are never hard-deleted;
// IsRemoved hides them from listings and from inventory aggregation.
type Purchase struct {
	ID                uint            `gorm:"primaryKey"`
	ProductName       string          `gorm:"size:255;not null;index"`
	Quantity          decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Unit              string          `gorm:"size:50;not null"` // pieces / boxes / kgs
	PricePerUnit      decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	TotalPrice        decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	LowStockThreshold int             `gorm:"not null"`
	Brand             string          `gorm:"size:255;not null"`
	UserID            uint            `gorm:"index;not null"`
	User              *User
	BranchID          *uint `gorm:"index"` // nil for purchases recorded without a branch
	Branch            *Branch
	CreatedBy         *uint
	UpdatedBy         *uint
	IsRemoved         bool `gorm:"not null;default:false;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
