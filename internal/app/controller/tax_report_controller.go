package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
	apperrors "github.com/ikkim/taxfiling-backend/internal/errors"
	"github.com/ikkim/taxfiling-backend/internal/middleware"
	"github.com/ikkim/taxfiling-backend/pkg/period"
)

type TaxReportController struct {
	reports    service.TaxReportService
	generation service.ReportGenerationService
}

func NewTaxReportController(reports service.TaxReportService, generation service.ReportGenerationService) *TaxReportController {
	return &TaxReportController{
		reports:    reports,
		generation: generation,
	}
}

// GenerateReportsRequest selects the period by key, by year, or by explicit dates.
type GenerateReportsRequest struct {
	PeriodKey   string `json:"period_key"` // "2025-Q2"
	Year        int    `json:"year"`
	PeriodStart string `json:"period_start"` // YYYY-MM-DD
	PeriodEnd   string `json:"period_end"`   // exclusive
	PeriodLabel string `json:"period_label"`
	DryRun      bool   `json:"dry_run"`
}

type CreateReportRequest struct {
	Type                 model.ReportType `json:"type" binding:"required"`
	PeriodStart          string           `json:"period_start" binding:"required"`
	PeriodEnd            string           `json:"period_end" binding:"required"`
	PeriodLabel          string           `json:"period_label"`
	DueDate              string           `json:"due_date"`
	EstimatedAmountCents int64            `json:"estimated_amount_cents"`
}

type SubmitReportRequest struct {
	Reference        string `json:"reference"`
	Notes            string `json:"notes"`
	FinalAmountCents *int64 `json:"final_amount_cents"`
}

type PayReportRequest struct {
	AmountCents *int64 `json:"amount_cents"`
	Reference   string `json:"reference"`
	PaidAt      string `json:"paid_at"`
}

type ArchiveReportRequest struct {
	Reason string `json:"reason"`
}

type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

type AttachDocumentRequest struct {
	StorageKey string `json:"storage_key" binding:"required"`
}

// Generate runs every applicable report strategy for a period
// POST /api/v1/tax/reports/generate
func (ctrl *TaxReportController) Generate(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	var req GenerateReportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid generate request", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	input := service.GenerateReportsInput{
		WorkspaceID: workspaceID,
		PeriodLabel: req.PeriodLabel,
		DryRun:      req.DryRun,
	}
	switch {
	case req.PeriodKey != "":
		q, err := period.ParseKey(req.PeriodKey)
		if err != nil {
			respondServiceError(c, err, "generate reports")
			return
		}
		input.PeriodStart, input.PeriodEnd = q.Start, q.End
		if input.PeriodLabel == "" {
			input.PeriodLabel = q.Label
		}
	case req.Year != 0:
		if req.Year < 1 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Invalid year")
			return
		}
		y := period.FullYear(req.Year)
		input.PeriodStart, input.PeriodEnd = y.Start, y.End
	default:
		start, errStart := parseDate(req.PeriodStart)
		end, errEnd := parseDate(req.PeriodEnd)
		if errStart != nil || errEnd != nil || start == nil || end == nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Provide period_key, year, or period_start and period_end as YYYY-MM-DD")
			return
		}
		input.PeriodStart, input.PeriodEnd = *start, *end
	}

	result, err := ctrl.generation.Execute(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err, "generate reports")
		return
	}

	log.Info("Tax reports generated", map[string]interface{}{
		"workspace_id": workspaceID,
		"period_label": result.PeriodLabel,
		"generated":    len(result.Reports),
		"failed":       len(result.Failures),
	})
	c.JSON(http.StatusOK, gin.H{
		"result": result,
	})
}

// List returns the workspace's reports
// GET /api/v1/tax/reports?status=&type=&year=
func (ctrl *TaxReportController) List(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	input := service.ListReportsInput{
		Status: model.ReportStatus(c.Query("status")),
		Type:   model.ReportType(c.Query("type")),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Invalid year")
			return
		}
		input.Year = year
	}

	reports, err := ctrl.reports.List(c.Request.Context(), workspaceID, input)
	if err != nil {
		respondServiceError(c, err, "list reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// Create files a report by hand
// POST /api/v1/tax/reports
func (ctrl *TaxReportController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}
	start, errStart := parseDate(req.PeriodStart)
	end, errEnd := parseDate(req.PeriodEnd)
	due, errDue := parseDate(req.DueDate)
	if errStart != nil || errEnd != nil || errDue != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Dates must be YYYY-MM-DD")
		return
	}

	report, err := ctrl.reports.Create(c.Request.Context(), workspaceID, service.CreateReportInput{
		Type:                 req.Type,
		PeriodStart:          *start,
		PeriodEnd:            *end,
		PeriodLabel:          req.PeriodLabel,
		DueDate:              due,
		EstimatedAmountCents: req.EstimatedAmountCents,
	})
	if err != nil {
		respondServiceError(c, err, "create report")
		return
	}

	log.Info("Tax report created", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    report.ID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"report": report,
	})
}

// Get returns one report with its lines
// GET /api/v1/tax/reports/:id
func (ctrl *TaxReportController) Get(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := ctrl.reports.Get(c.Request.Context(), workspaceID, id)
	if err != nil {
		respondServiceError(c, err, "load report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}

// Submit records the filing
// POST /api/v1/tax/reports/:id/submit
func (ctrl *TaxReportController) Submit(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmitReportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	report, err := ctrl.reports.MarkSubmitted(c.Request.Context(), workspaceID, id, service.SubmitReportInput{
		Reference:        req.Reference,
		Notes:            req.Notes,
		FinalAmountCents: req.FinalAmountCents,
	})
	if err != nil {
		respondServiceError(c, err, "submit report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}

// Pay records the payment of a submitted report
// POST /api/v1/tax/reports/:id/pay
func (ctrl *TaxReportController) Pay(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PayReportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}
	paidAt, err := parseDate(req.PaidAt)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "paid_at must be YYYY-MM-DD")
		return
	}

	report, err := ctrl.reports.MarkPaid(c.Request.Context(), workspaceID, id, service.PayReportInput{
		AmountCents: req.AmountCents,
		Reference:   req.Reference,
		PaidAt:      paidAt,
	})
	if err != nil {
		respondServiceError(c, err, "mark report paid")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}

// Archive
// POST /api/v1/tax/reports/:id/archive
func (ctrl *TaxReportController) Archive(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ArchiveReportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	report, err := ctrl.reports.Archive(c.Request.Context(), workspaceID, id, req.Reason)
	if err != nil {
		respondServiceError(c, err, "archive report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}

// Recalculate re-runs the report's strategy
// POST /api/v1/tax/reports/:id/recalculate
func (ctrl *TaxReportController) Recalculate(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := ctrl.reports.Recalculate(c.Request.Context(), workspaceID, id)
	if err != nil {
		respondServiceError(c, err, "recalculate report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}

// Delete removes a report that was never filed
// DELETE /api/v1/tax/reports/:id
func (ctrl *TaxReportController) Delete(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.reports.Delete(c.Request.Context(), workspaceID, id); err != nil {
		respondServiceError(c, err, "delete report")
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestUploadURL
// POST /api/v1/tax/reports/:id/document/upload-url
func (ctrl *TaxReportController) RequestUploadURL(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "filename is required")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	upload, err := ctrl.reports.RequestDocumentUpload(c.Request.Context(), workspaceID, id, req.Filename, contentType)
	if err != nil {
		respondServiceError(c, err, "presign report upload")
		return
	}
	c.JSON(http.StatusOK, upload)
}

// AttachDocument
// PUT /api/v1/tax/reports/:id/document
func (ctrl *TaxReportController) AttachDocument(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "storage_key is required")
		return
	}

	report, err := ctrl.reports.AttachDocument(c.Request.Context(), workspaceID, id, req.StorageKey)
	if err != nil {
		respondServiceError(c, err, "attach report document")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
	})
}

// GetDocument returns a signed download link
// GET /api/v1/tax/reports/:id/document
func (ctrl *TaxReportController) GetDocument(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	link, err := ctrl.reports.DocumentLink(c.Request.Context(), workspaceID, id)
	if err != nil {
		respondServiceError(c, err, "presign report download")
		return
	}
	c.JSON(http.StatusOK, link)
}

// Periods lists the VAT quarters of a year
// GET /api/v1/tax/periods?year=
func (ctrl *TaxReportController) Periods(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "year is required")
		return
	}

	periods, err := ctrl.reports.VATPeriods(c.Request.Context(), workspaceID, year)
	if err != nil {
		respondServiceError(c, err, "list VAT periods")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"year":    year,
		"periods": periods,
	})
}
