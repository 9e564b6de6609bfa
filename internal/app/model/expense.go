package model

import (
	"time"

	"gorm.io/gorm"
)

// Expense is a purchase as read by the tax engine. Input tax is always
// attributed to TransactionDate regardless of the accounting method.
type Expense struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	WorkspaceID     uint           `gorm:"not null;index:idx_expenses_date" json:"workspace_id"`
	Status          DocumentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionDate time.Time      `gorm:"not null;index:idx_expenses_date" json:"transaction_date"`
	Category        string         `gorm:"type:varchar(50)" json:"category,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	NetCents        int64          `gorm:"not null" json:"net_cents"`
	TaxCents        int64          `gorm:"not null" json:"tax_cents"` // 매입 세액
	Currency        string         `gorm:"type:varchar(3);not null" json:"currency"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) BeforeSave(tx *gorm.DB) error {
	e.TransactionDate = e.TransactionDate.UTC()
	return nil
}
