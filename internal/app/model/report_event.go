package model

import "time"

type ReportEventType string

const (
	ReportEventGenerated     ReportEventType = "report.generated"
	ReportEventStatusChanged ReportEventType = "report.status_changed"
	ReportEventDeleted       ReportEventType = "report.deleted"
)

// ReportEvent is pushed to the clients of one workspace after a report write.
type ReportEvent struct {
	Type        ReportEventType `json:"type"`
	WorkspaceID uint            `json:"workspace_id"`
	ReportID    uint            `json:"report_id"`
	ReportType  ReportType      `json:"report_type"`
	PeriodLabel string          `json:"period_label"`
	Status      ReportStatus    `json:"status"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
