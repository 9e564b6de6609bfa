package model

import "time"

type ReportType string   // 신고서 유형
type ReportGroup string  // 신고서 그룹
type ReportStatus string // 신고서 상태

const (
	ReportTypeVATAdvance  ReportType = "VAT_ADVANCE"   // 부가세 예정신고
	ReportTypeEUSalesList ReportType = "EU_SALES_LIST" // EU 역내 판매 목록
	ReportTypeAnnualVAT   ReportType = "ANNUAL_VAT"    // 부가세 확정신고
	ReportTypeIncomeTax   ReportType = "INCOME_TAX"    // 종합소득세 체크리스트

	ReportGroupAdvanceVAT   ReportGroup = "ADVANCE_VAT"
	ReportGroupAnnualReport ReportGroup = "ANNUAL_REPORT"
	ReportGroupExcise       ReportGroup = "EXCISE"
	ReportGroupCompliance   ReportGroup = "COMPLIANCE"

	ReportStatusUpcoming  ReportStatus = "UPCOMING"  // 기간 진행 중
	ReportStatusOpen      ReportStatus = "OPEN"      // 신고 대기
	ReportStatusOverdue   ReportStatus = "OVERDUE"   // 기한 초과 (조회 시 계산, 저장하지 않음)
	ReportStatusSubmitted ReportStatus = "SUBMITTED" // 신고 완료
	ReportStatusNil       ReportStatus = "NIL"       // 무실적 신고
	ReportStatusPaid      ReportStatus = "PAID"      // 납부 완료
	ReportStatusArchived  ReportStatus = "ARCHIVED"  // 보관
)

// GroupFor maps a report type to its group. Unknown types fall into COMPLIANCE.
func GroupFor(t ReportType) ReportGroup {
	switch t {
	case ReportTypeVATAdvance:
		return ReportGroupAdvanceVAT
	case ReportTypeAnnualVAT, ReportTypeIncomeTax:
		return ReportGroupAnnualReport
	default:
		return ReportGroupCompliance
	}
}

// IsValid reports whether t is a known report type.
func (t ReportType) IsValid() bool {
	switch t {
	case ReportTypeVATAdvance, ReportTypeEUSalesList, ReportTypeAnnualVAT, ReportTypeIncomeTax:
		return true
	}
	return false
}

// IsPending reports whether the status still expects a filing.
func (s ReportStatus) IsPending() bool {
	return s == ReportStatusUpcoming || s == ReportStatusOpen
}

// IsValid reports whether s is a status that may be stored. OVERDUE is derived only.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusUpcoming, ReportStatusOpen, ReportStatusSubmitted, ReportStatusNil,
		ReportStatusPaid, ReportStatusArchived:
		return true
	}
	return false
}

// DisplayStatus derives the status shown to users. A pending report becomes
// OVERDUE once its due day (UTC) has ended; the stored status is never changed for that.
func DisplayStatus(status ReportStatus, dueDate, now time.Time) ReportStatus {
	if status.IsPending() && !now.Before(endOfDueDay(dueDate)) {
		return ReportStatusOverdue
	}
	return status
}

func endOfDueDay(dueDate time.Time) time.Time {
	y, m, d := dueDate.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// TaxReport is unique per (workspace, type, period_start, period_end).
type TaxReport struct {
	ID                   uint         `gorm:"primarykey" json:"id"`
	WorkspaceID          uint         `gorm:"not null;uniqueIndex:idx_tax_reports_period" json:"workspace_id"`
	Type                 ReportType   `gorm:"type:varchar(30);not null;uniqueIndex:idx_tax_reports_period" json:"type"`
	Group                ReportGroup  `gorm:"column:report_group;type:varchar(30);not null" json:"group"`
	PeriodLabel          string       `gorm:"type:varchar(50);not null" json:"period_label"`
	PeriodStart          time.Time    `gorm:"not null;uniqueIndex:idx_tax_reports_period" json:"period_start"`
	PeriodEnd            time.Time    `gorm:"not null;uniqueIndex:idx_tax_reports_period" json:"period_end"`
	DueDate              time.Time    `gorm:"not null;index" json:"due_date"`
	Status               ReportStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	EstimatedAmountCents int64        `gorm:"not null" json:"estimated_amount_cents"`   // 예상 납부액 (음수 = 환급)
	FinalAmountCents     *int64       `json:"final_amount_cents,omitempty"`             // 확정 납부액
	Currency             string       `gorm:"type:varchar(3);not null" json:"currency"` // 통화
	SubmissionReference  string       `gorm:"type:varchar(100)" json:"submission_reference,omitempty"`
	SubmissionNotes      string       `gorm:"type:text" json:"submission_notes,omitempty"`
	SubmittedAt          *time.Time   `json:"submitted_at,omitempty"`
	PaidAt               *time.Time   `json:"paid_at,omitempty"`
	ArchivedAt           *time.Time   `json:"archived_at,omitempty"`
	ArchiveReason        string       `gorm:"type:text" json:"archive_reason,omitempty"`
	DocumentStorageKey   string       `gorm:"type:varchar(255)" json:"document_storage_key,omitempty"` // 신고서 파일 키
	Meta                 ReportMeta   `gorm:"type:text;serializer:json" json:"meta"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`

	Lines []TaxReportLine `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`

	DisplayStatus ReportStatus `gorm:"-" json:"display_status"`
}

func (TaxReport) TableName() string {
	return "tax_reports"
}

// WithDisplayStatus fills DisplayStatus for now.
func (r *TaxReport) WithDisplayStatus(now time.Time) *TaxReport {
	r.DisplayStatus = DisplayStatus(r.Status, r.DueDate, now)
	return r
}

// TaxReportLine is one line of a report (section/label/net/tax).
type TaxReportLine struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	ReportID uint   `gorm:"not null;index" json:"report_id"`
	Position int    `gorm:"not null" json:"position"`
	Section  string `gorm:"type:varchar(50);not null" json:"section"`
	Code     string `gorm:"type:varchar(20)" json:"code,omitempty"` // 양식 칸 번호
	Label    string `gorm:"type:varchar(200);not null" json:"label"`
	NetCents int64  `gorm:"not null" json:"net_cents"`
	TaxCents int64  `gorm:"not null" json:"tax_cents"`
}

func (TaxReportLine) TableName() string {
	return "tax_report_lines"
}
