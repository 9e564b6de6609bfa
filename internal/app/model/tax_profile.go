package model

import "time"

type TaxRegime string        // 과세 유형
type AccountingMethod string // 과세 기준 (발생주의/현금주의)
type FilingFrequency string  // 신고 주기

const (
	RegimeStandardVAT   TaxRegime = "STANDARD_VAT"   // 일반 과세
	RegimeSmallBusiness TaxRegime = "SMALL_BUSINESS" // 소규모 사업자 면세

	AccountingAccrual AccountingMethod = "SOLL" // 발생주의 (발행일 기준)
	AccountingCash    AccountingMethod = "IST"  // 현금주의 (입금일 기준)

	FilingMonthly   FilingFrequency = "MONTHLY"
	FilingQuarterly FilingFrequency = "QUARTERLY"
	FilingAnnual    FilingFrequency = "ANNUAL"
)

// TaxProfile is one effective-dated configuration of a workspace.
// The profile is active for instant t when EffectiveFrom <= t and
// (EffectiveTo is nil or t < EffectiveTo).
type TaxProfile struct {
	ID                  uint             `gorm:"primarykey" json:"id"`
	WorkspaceID         uint             `gorm:"not null;index:idx_tax_profiles_window" json:"workspace_id"`
	CountryCode         string           `gorm:"type:varchar(2);not null" json:"country_code"`
	Regime              TaxRegime        `gorm:"type:varchar(20);not null;default:'STANDARD_VAT'" json:"regime"`
	VATEnabled          bool             `gorm:"not null" json:"vat_enabled"`
	AccountingMethod    AccountingMethod `gorm:"type:varchar(4);not null;default:'SOLL'" json:"accounting_method"`
	FilingFrequency     FilingFrequency  `gorm:"type:varchar(20);not null;default:'QUARTERLY'" json:"filing_frequency"`
	Currency            string           `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	TaxYearStartMonth   int              `gorm:"not null;default:1" json:"tax_year_start_month"`
	HasCrossBorderSales bool             `gorm:"not null" json:"has_cross_border_sales"`
	HasEmployees        bool             `gorm:"not null" json:"has_employees"`
	UsesTaxAdvisor      bool             `gorm:"not null" json:"uses_tax_advisor"`
	EffectiveFrom       time.Time        `gorm:"not null;index:idx_tax_profiles_window" json:"effective_from"`
	EffectiveTo         *time.Time       `gorm:"index" json:"effective_to,omitempty"` // nil = 현재 유효
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (TaxProfile) TableName() string {
	return "tax_profiles"
}

// ActiveAt reports whether the profile's window contains t.
func (p *TaxProfile) ActiveAt(t time.Time) bool {
	if t.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveTo == nil || t.Before(*p.EffectiveTo)
}

// VATApplicable reports whether VAT returns apply under this profile.
func (p *TaxProfile) VATApplicable() bool {
	return p.VATEnabled && p.Regime != RegimeSmallBusiness
}
