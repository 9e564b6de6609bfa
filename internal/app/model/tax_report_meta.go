package model

import "time"

type IssueCode string

const (
	IssueAmountDrift       IssueCode = "AMOUNT_DRIFT"
	IssueRefundExpected    IssueCode = "REFUND_EXPECTED"
	IssueNoActivity        IssueCode = "NO_ACTIVITY"
	IssueNoIntraEUSupplies IssueCode = "NO_INTRA_EU_SUPPLIES"
)

// ReportMeta is the typed metadata attached to a report. Each section is a
// known shape; absent sections are nil. Stored as JSON.
type ReportMeta struct {
	Computation *ComputationMeta `json:"computation,omitempty"`
	Submission  *SubmissionMeta  `json:"submission,omitempty"`
	Payment     *PaymentMeta     `json:"payment,omitempty"`
	Checklist   []ChecklistItem  `json:"checklist,omitempty"`
	Issues      []MetaIssue      `json:"issues,omitempty"`
}

// ComputationMeta records the inputs a strategy used.
type ComputationMeta struct {
	AccountingMethod   AccountingMethod `json:"accounting_method"`
	SalesNetCents      int64            `json:"sales_net_cents"`
	SalesTaxCents      int64            `json:"sales_tax_cents"`
	PurchaseNetCents   int64            `json:"purchase_net_cents"`
	PurchaseTaxCents   int64            `json:"purchase_tax_cents"`
	IntraEUNetCents    int64            `json:"intra_eu_net_cents,omitempty"`
	SalesDocumentCount int              `json:"sales_document_count"`
	PurchaseCount      int              `json:"purchase_count"`
	ComputedAt         time.Time        `json:"computed_at"`
}

type SubmissionMeta struct {
	Reference   string    `json:"reference,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	NilReturn   bool      `json:"nil_return,omitempty"`
}

type PaymentMeta struct {
	AmountCents int64     `json:"amount_cents"`
	Reference   string    `json:"reference,omitempty"`
	PaidAt      time.Time `json:"paid_at"`
}

type ChecklistItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

type MetaIssue struct {
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
}

// Merge overlays the non-nil sections of patch onto m. Issues from patch
// replace issues with the same code.
func (m ReportMeta) Merge(patch ReportMeta) ReportMeta {
	if patch.Computation != nil {
		m.Computation = patch.Computation
	}
	if patch.Submission != nil {
		m.Submission = patch.Submission
	}
	if patch.Payment != nil {
		m.Payment = patch.Payment
	}
	if patch.Checklist != nil {
		m.Checklist = patch.Checklist
	}
	for _, issue := range patch.Issues {
		m = m.WithIssue(issue)
	}
	return m
}

// WithIssue adds or replaces the issue with the same code.
func (m ReportMeta) WithIssue(issue MetaIssue) ReportMeta {
	issues := make([]MetaIssue, 0, len(m.Issues)+1)
	for _, existing := range m.Issues {
		if existing.Code != issue.Code {
			issues = append(issues, existing)
		}
	}
	m.Issues = append(issues, issue)
	return m
}

// WithoutIssue drops the issue with code.
func (m ReportMeta) WithoutIssue(code IssueCode) ReportMeta {
	if len(m.Issues) == 0 {
		return m
	}
	issues := make([]MetaIssue, 0, len(m.Issues))
	for _, existing := range m.Issues {
		if existing.Code != code {
			issues = append(issues, existing)
		}
	}
	if len(issues) == 0 {
		issues = nil
	}
	m.Issues = issues
	return m
}
