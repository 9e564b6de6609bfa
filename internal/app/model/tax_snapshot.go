package model

import "time"

type SnapshotSourceType string // 원천 문서 유형
type RoundingMode string       // 반올림 방식

const (
	SnapshotSourceInvoice SnapshotSourceType = "INVOICE"
	SnapshotSourceExpense SnapshotSourceType = "EXPENSE"

	RoundingHalfUp   RoundingMode = "HALF_UP"
	RoundingHalfEven RoundingMode = "HALF_EVEN"

	// CurrentSnapshotVersion is the breakdown layout written by the locker.
	CurrentSnapshotVersion = 1
)

// TaxSnapshot is the frozen tax breakdown of one finalized document.
// Rows are written once and never updated.
type TaxSnapshot struct {
	ID            uint               `gorm:"primarykey" json:"id"`
	WorkspaceID   uint               `gorm:"not null;uniqueIndex:idx_tax_snapshots_source" json:"workspace_id"`
	SourceType    SnapshotSourceType `gorm:"type:varchar(20);not null;uniqueIndex:idx_tax_snapshots_source" json:"source_type"`
	SourceID      string             `gorm:"type:varchar(100);not null;uniqueIndex:idx_tax_snapshots_source" json:"source_id"`
	Jurisdiction  string             `gorm:"type:varchar(10);not null" json:"jurisdiction"`
	Regime        TaxRegime          `gorm:"type:varchar(20);not null" json:"regime"`
	RoundingMode  RoundingMode       `gorm:"type:varchar(20);not null" json:"rounding_mode"`
	Currency      string             `gorm:"type:varchar(3);not null" json:"currency"`
	CalculatedAt  time.Time          `gorm:"not null" json:"calculated_at"`
	SubtotalCents int64              `gorm:"not null" json:"subtotal_cents"`
	TaxCents      int64              `gorm:"not null" json:"tax_cents"`
	TotalCents    int64              `gorm:"not null" json:"total_cents"`
	Breakdown     string             `gorm:"type:text;not null" json:"breakdown"` // 직렬화된 세액 내역 (JSON)
	Version       int                `gorm:"not null" json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
}

func (TaxSnapshot) TableName() string {
	return "tax_snapshots"
}

// SnapshotBreakdownLine is one rate bucket of a snapshot breakdown.
type SnapshotBreakdownLine struct {
	Label           string `json:"label"`
	RateBasisPoints int64  `json:"rate_basis_points"` // 1900 = 19%
	NetCents        int64  `json:"net_cents"`
	TaxCents        int64  `json:"tax_cents"`
}
