package models

import "time"

type Branch struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;index"`
	Address   string `gorm:"size:255"`
	Phone     string `gorm:"size:50"` // optional
	IsRemoved bool   `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}
