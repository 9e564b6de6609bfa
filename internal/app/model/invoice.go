package model

import (
	"time"

	"gorm.io/gorm"
)

type DocumentStatus string // 문서 상태

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"     // 작성 중
	DocumentStatusFinalized DocumentStatus = "FINALIZED" // 확정
	DocumentStatusCancelled DocumentStatus = "CANCELLED" // 취소
)

// Invoice is a sales document as read by the tax engine. The document store
// that owns invoices lives outside this service; only finalized rows count.
type Invoice struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	WorkspaceID     uint           `gorm:"not null;index:idx_invoices_issue" json:"workspace_id"`
	Number          string         `gorm:"type:varchar(50);not null" json:"number"`
	Status          DocumentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IssueDate       time.Time      `gorm:"not null;index:idx_invoices_issue" json:"issue_date"`
	NetCents        int64          `gorm:"not null" json:"net_cents"`
	TaxCents        int64          `gorm:"not null" json:"tax_cents"`
	Currency        string         `gorm:"type:varchar(3);not null" json:"currency"`
	CustomerCountry string         `gorm:"type:varchar(2)" json:"customer_country,omitempty"`
	IntraCommunity  bool           `gorm:"not null" json:"intra_community"` // EU 역내 공급 (역과세)
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Payments []InvoicePayment `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// BeforeSave stores IssueDate in UTC.
func (i *Invoice) BeforeSave(tx *gorm.DB) error {
	i.IssueDate = i.IssueDate.UTC()
	return nil
}

// GrossCents is net plus tax.
func (i *Invoice) GrossCents() int64 {
	return i.NetCents + i.TaxCents
}

// InvoicePayment is one payment received against an invoice.
type InvoicePayment struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	InvoiceID   uint      `gorm:"not null;index" json:"invoice_id"`
	PaidAt      time.Time `gorm:"not null;index" json:"paid_at"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *InvoicePayment) BeforeSave(tx *gorm.DB) error {
	p.PaidAt = p.PaidAt.UTC()
	return nil
}

func (InvoicePayment) TableName() string {
	return "invoice_payments"
}
