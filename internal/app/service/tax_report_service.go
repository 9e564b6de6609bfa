package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	apperrors "github.com/ikkim/taxfiling-backend/internal/errors"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"github.com/ikkim/taxfiling-backend/pkg/period"
	"gorm.io/gorm"
)

var (
	ErrReportNotFound        = errors.New("tax report not found")
	ErrReportAlreadyExists   = errors.New("tax report already exists for this period")
	ErrConflictingTransition = errors.New("conflicting report transition")
	ErrArchiveReasonRequired = errors.New("archive reason is required")
	ErrInvalidReportStatus   = errors.New("invalid report status")
	ErrDocumentMissing       = errors.New("report has no attached document")
	ErrInvalidStorageKey     = errors.New("storage key does not belong to this report")
	ErrStorageUnavailable    = errors.New("artifact storage is not configured")
)

// VATPeriodNotGenerated marks a quarter without a stored VAT advance report.
const VATPeriodNotGenerated model.ReportStatus = "NOT_GENERATED"

type ListReportsInput struct {
	Status model.ReportStatus // OVERDUE filters on the derived status
	Type   model.ReportType
	Year   int
}

type CreateReportInput struct {
	Type                 model.ReportType
	PeriodStart          time.Time
	PeriodEnd            time.Time
	PeriodLabel          string
	DueDate              *time.Time // nil = jurisdiction rule
	EstimatedAmountCents int64
}

type SubmitReportInput struct {
	Reference        string
	Notes            string
	FinalAmountCents *int64 // nil = estimated amount
}

type PayReportInput struct {
	AmountCents *int64 // nil = final amount
	Reference   string
	PaidAt      *time.Time
}

type VATPeriodStatus struct {
	Key                  string             `json:"key"`
	Label                string             `json:"label"`
	Start                time.Time          `json:"start"`
	End                  time.Time          `json:"end"`
	Status               model.ReportStatus `json:"status"`
	ReportID             *uint              `json:"report_id,omitempty"`
	DueDate              *time.Time         `json:"due_date,omitempty"`
	EstimatedAmountCents *int64             `json:"estimated_amount_cents,omitempty"`
}

type DocumentUpload struct {
	UploadURL  string    `json:"upload_url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type DocumentLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TaxReportService interface {
	List(ctx context.Context, workspaceID uint, input ListReportsInput) ([]model.TaxReport, error)
	Get(ctx context.Context, workspaceID, id uint) (*model.TaxReport, error)
	Create(ctx context.Context, workspaceID uint, input CreateReportInput) (*model.TaxReport, error)
	MarkSubmitted(ctx context.Context, workspaceID, id uint, input SubmitReportInput) (*model.TaxReport, error)
	MarkPaid(ctx context.Context, workspaceID, id uint, input PayReportInput) (*model.TaxReport, error)
	Archive(ctx context.Context, workspaceID, id uint, reason string) (*model.TaxReport, error)
	Delete(ctx context.Context, workspaceID, id uint) error
	Recalculate(ctx context.Context, workspaceID, id uint) (*model.TaxReport, error)
	VATPeriods(ctx context.Context, workspaceID uint, year int) ([]VATPeriodStatus, error)
	RequestDocumentUpload(ctx context.Context, workspaceID, id uint, filename, contentType string) (*DocumentUpload, error)
	AttachDocument(ctx context.Context, workspaceID, id uint, storageKey string) (*model.TaxReport, error)
	DocumentLink(ctx context.Context, workspaceID, id uint) (*DocumentLink, error)
}

type taxReportService struct {
	reportRepo repository.TaxReportRepository
	profiles   TaxProfileService
	registry   *StrategyRegistry
	generation ReportGenerationService
	storage    ArtifactStorage
	cache      SummaryCache
	events     EventPublisher
	clock      Clock
}

func NewTaxReportService(
	reportRepo repository.TaxReportRepository,
	profiles TaxProfileService,
	registry *StrategyRegistry,
	generation ReportGenerationService,
	storage ArtifactStorage,
	cache SummaryCache,
	events EventPublisher,
	clock Clock,
) TaxReportService {
	if cache == nil {
		cache = nopSummaryCache{}
	}
	if events == nil {
		events = nopEventPublisher{}
	}
	return &taxReportService{
		reportRepo: reportRepo,
		profiles:   profiles,
		registry:   registry,
		generation: generation,
		storage:    storage,
		cache:      cache,
		events:     events,
		clock:      clock,
	}
}

func conflict(action string, from model.ReportStatus) error {
	return fmt.Errorf("%w: cannot %s a report in status %s", ErrConflictingTransition, action, from)
}

func (s *taxReportService) List(ctx context.Context, workspaceID uint, input ListReportsInput) ([]model.TaxReport, error) {
	filter := repository.ReportFilter{WorkspaceID: workspaceID, Year: input.Year}
	if input.Type != "" {
		filter.Types = []model.ReportType{input.Type}
	}

	overdueOnly := input.Status == model.ReportStatusOverdue
	switch {
	case overdueOnly:
		filter.Statuses = []model.ReportStatus{model.ReportStatusUpcoming, model.ReportStatusOpen}
	case input.Status != "":
		if !input.Status.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidReportStatus, input.Status)
		}
		filter.Statuses = []model.ReportStatus{input.Status}
	}

	reports, err := s.reportRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	result := make([]model.TaxReport, 0, len(reports))
	for i := range reports {
		reports[i].WithDisplayStatus(now)
		if overdueOnly && reports[i].DisplayStatus != model.ReportStatusOverdue {
			continue
		}
		result = append(result, reports[i])
	}
	return result, nil
}

func (s *taxReportService) Get(ctx context.Context, workspaceID, id uint) (*model.TaxReport, error) {
	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	return report.WithDisplayStatus(s.clock.now()), nil
}

func (s *taxReportService) find(ctx context.Context, workspaceID, id uint) (*model.TaxReport, error) {
	report, err := s.reportRepo.FindByID(ctx, workspaceID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// Create files a report by hand. The (type, period) key must still be free.
func (s *taxReportService) Create(ctx context.Context, workspaceID uint, input CreateReportInput) (*model.TaxReport, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReportType, input.Type)
	}
	start, end := input.PeriodStart.UTC(), input.PeriodEnd.UTC()
	if !end.After(start) {
		return nil, ErrInvalidPeriodRange
	}

	now := s.clock.now()
	var (
		dueDate  time.Time
		currency = "EUR"
	)
	profile, err := s.profiles.GetActive(ctx, workspaceID, lastInstant(end))
	switch {
	case err == nil:
		currency = profile.Currency
	case !errors.Is(err, ErrProfileMissing):
		return nil, err
	}

	if input.DueDate != nil {
		dueDate = input.DueDate.UTC()
	} else {
		if profile == nil {
			return nil, ErrProfileMissing
		}
		strategy, err := s.registry.Lookup(input.Type, profile.CountryCode)
		if err != nil {
			return nil, err
		}
		dueDate = strategy.DueDate(end, StrategyContext{
			WorkspaceID: workspaceID,
			Profile:     profile,
			PeriodStart: start,
			PeriodEnd:   end,
			Now:         now,
		})
	}

	label := input.PeriodLabel
	if label == "" {
		label = defaultPeriodLabel(start, end)
	}

	if _, err := s.reportRepo.FindByPeriod(ctx, workspaceID, input.Type, start, end); err == nil {
		return nil, ErrReportAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	report := &model.TaxReport{
		WorkspaceID:          workspaceID,
		Type:                 input.Type,
		Group:                model.GroupFor(input.Type),
		PeriodLabel:          label,
		PeriodStart:          start,
		PeriodEnd:            end,
		DueDate:              dueDate,
		Status:               initialStatus(end, now),
		EstimatedAmountCents: input.EstimatedAmountCents,
		Currency:             currency,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		if apperrors.IsDuplicateKey(err) {
			return nil, ErrReportAlreadyExists
		}
		return nil, err
	}

	logger.Info("Tax report created manually", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    report.ID,
		"type":         report.Type,
		"period_label": report.PeriodLabel,
	})
	s.afterChange(ctx, report, model.ReportEventGenerated, now)
	return report.WithDisplayStatus(now), nil
}

// MarkSubmitted records the filing. A zero final amount is a nil return.
func (s *taxReportService) MarkSubmitted(ctx context.Context, workspaceID, id uint, input SubmitReportInput) (*model.TaxReport, error) {
	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	switch report.Status {
	case model.ReportStatusSubmitted, model.ReportStatusNil, model.ReportStatusPaid, model.ReportStatusArchived:
		logger.Warn("Rejected report submission", map[string]interface{}{
			"workspace_id": workspaceID,
			"report_id":    id,
			"status":       report.Status,
		})
		return nil, conflict("submit", report.Status)
	}

	now := s.clock.now()
	final := report.EstimatedAmountCents
	if input.FinalAmountCents != nil {
		final = *input.FinalAmountCents
	}

	report.FinalAmountCents = &final
	report.SubmissionReference = strings.TrimSpace(input.Reference)
	report.SubmissionNotes = strings.TrimSpace(input.Notes)
	report.SubmittedAt = &now
	report.Status = model.ReportStatusSubmitted
	if final == 0 {
		report.Status = model.ReportStatusNil
	}
	report.Meta.Submission = &model.SubmissionMeta{
		Reference:   report.SubmissionReference,
		Notes:       report.SubmissionNotes,
		SubmittedAt: now,
		NilReturn:   final == 0,
	}
	report.Meta = report.Meta.WithoutIssue(model.IssueAmountDrift)

	if err := s.reportRepo.Update(ctx, report); err != nil {
		return nil, err
	}

	logger.Info("Tax report submitted", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    id,
		"status":       report.Status,
		"final_cents":  final,
	})
	s.afterChange(ctx, report, model.ReportEventStatusChanged, now)
	return report.WithDisplayStatus(now), nil
}

// MarkPaid requires a prior submission.
func (s *taxReportService) MarkPaid(ctx context.Context, workspaceID, id uint, input PayReportInput) (*model.TaxReport, error) {
	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if report.Status != model.ReportStatusSubmitted {
		logger.Warn("Rejected report payment", map[string]interface{}{
			"workspace_id": workspaceID,
			"report_id":    id,
			"status":       report.Status,
		})
		return nil, conflict("mark paid", report.Status)
	}

	now := s.clock.now()
	paidAt := now
	if input.PaidAt != nil {
		paidAt = input.PaidAt.UTC()
	}
	amount := report.EstimatedAmountCents
	if report.FinalAmountCents != nil {
		amount = *report.FinalAmountCents
	}
	if input.AmountCents != nil {
		amount = *input.AmountCents
	}

	report.Status = model.ReportStatusPaid
	report.PaidAt = &paidAt
	report.Meta.Payment = &model.PaymentMeta{
		AmountCents: amount,
		Reference:   strings.TrimSpace(input.Reference),
		PaidAt:      paidAt,
	}
	if err := s.reportRepo.Update(ctx, report); err != nil {
		return nil, err
	}

	logger.Info("Tax report marked paid", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    id,
		"amount_cents": amount,
	})
	s.afterChange(ctx, report, model.ReportEventStatusChanged, now)
	return report.WithDisplayStatus(now), nil
}

func (s *taxReportService) Archive(ctx context.Context, workspaceID, id uint, reason string) (*model.TaxReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrArchiveReasonRequired
	}

	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if report.Status == model.ReportStatusArchived {
		return nil, conflict("archive", report.Status)
	}

	now := s.clock.now()
	report.Status = model.ReportStatusArchived
	report.ArchivedAt = &now
	report.ArchiveReason = reason
	if err := s.reportRepo.Update(ctx, report); err != nil {
		return nil, err
	}

	logger.Info("Tax report archived", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    id,
		"reason":       reason,
	})
	s.afterChange(ctx, report, model.ReportEventStatusChanged, now)
	return report.WithDisplayStatus(now), nil
}

// Delete is only allowed before anything was filed.
func (s *taxReportService) Delete(ctx context.Context, workspaceID, id uint) error {
	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if !report.Status.IsPending() {
		logger.Warn("Rejected report deletion", map[string]interface{}{
			"workspace_id": workspaceID,
			"report_id":    id,
			"status":       report.Status,
		})
		return conflict("delete", report.Status)
	}

	if err := s.reportRepo.Delete(ctx, report.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		return err
	}

	logger.Info("Tax report deleted", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    id,
		"type":         report.Type,
	})
	s.afterChange(ctx, report, model.ReportEventDeleted, s.clock.now())
	return nil
}

func (s *taxReportService) Recalculate(ctx context.Context, workspaceID, id uint) (*model.TaxReport, error) {
	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if report.Status == model.ReportStatusArchived {
		return nil, conflict("recalculate", report.Status)
	}
	return s.generation.Regenerate(ctx, report)
}

// VATPeriods lists the filing periods of year (quarters, or months for monthly
// filers) with the status of their VAT advance report, or NOT_GENERATED.
func (s *taxReportService) VATPeriods(ctx context.Context, workspaceID uint, year int) ([]VATPeriodStatus, error) {
	if year < 1 {
		return nil, fmt.Errorf("%w: year %d", period.ErrInvalidPeriodKey, year)
	}

	reports, err := s.reportRepo.List(ctx, repository.ReportFilter{
		WorkspaceID: workspaceID,
		Types:       []model.ReportType{model.ReportTypeVATAdvance},
		Year:        year,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	windows, err := s.filingPeriodsOf(ctx, workspaceID, year, now)
	if err != nil {
		return nil, err
	}
	statuses := make([]VATPeriodStatus, 0, len(windows))
	for _, q := range windows {
		entry := VATPeriodStatus{Key: q.Key, Label: q.Label, Start: q.Start, End: q.End, Status: VATPeriodNotGenerated}
		for i := range reports {
			r := &reports[i]
			if r.PeriodStart.Equal(q.Start) && r.PeriodEnd.Equal(q.End) {
				id, due, amount := r.ID, r.DueDate, r.EstimatedAmountCents
				if r.FinalAmountCents != nil {
					amount = *r.FinalAmountCents
				}
				entry.Status = model.DisplayStatus(r.Status, r.DueDate, now)
				entry.ReportID = &id
				entry.DueDate = &due
				entry.EstimatedAmountCents = &amount
				break
			}
		}
		statuses = append(statuses, entry)
	}
	return statuses, nil
}

// filingPeriodsOf lists months for a MONTHLY profile and quarters otherwise.
// The profile is the one active at the year's end, or now for the running year.
func (s *taxReportService) filingPeriodsOf(ctx context.Context, workspaceID uint, year int, now time.Time) ([]period.VatPeriod, error) {
	end := period.FullYear(year).End
	at := lastInstant(end)
	if now.Before(end) {
		at = now
	}
	profile, err := s.profiles.GetActive(ctx, workspaceID, at)
	if err != nil && !errors.Is(err, ErrProfileMissing) {
		return nil, err
	}
	if profile != nil && profile.FilingFrequency == model.FilingMonthly {
		return period.MonthsOfYear(year), nil
	}
	return period.QuartersOfYear(year), nil
}

func documentKeyPrefix(workspaceID, reportID uint) string {
	return fmt.Sprintf("tax-reports/%d/%d/", workspaceID, reportID)
}

func (s *taxReportService) RequestDocumentUpload(ctx context.Context, workspaceID, id uint, filename, contentType string) (*DocumentUpload, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if _, err := s.find(ctx, workspaceID, id); err != nil {
		return nil, err
	}

	key := documentKeyPrefix(workspaceID, id) + uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	url, expiresAt, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		logger.Error("Failed to presign report upload", err, map[string]interface{}{
			"workspace_id": workspaceID,
			"report_id":    id,
		})
		return nil, err
	}
	return &DocumentUpload{UploadURL: url, StorageKey: key, ExpiresAt: expiresAt}, nil
}

func (s *taxReportService) AttachDocument(ctx context.Context, workspaceID, id uint, storageKey string) (*model.TaxReport, error) {
	if !strings.HasPrefix(storageKey, documentKeyPrefix(workspaceID, id)) {
		return nil, ErrInvalidStorageKey
	}
	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	report.DocumentStorageKey = storageKey
	if err := s.reportRepo.Update(ctx, report); err != nil {
		return nil, err
	}

	logger.Info("Document attached to tax report", map[string]interface{}{
		"workspace_id": workspaceID,
		"report_id":    id,
		"storage_key":  storageKey,
	})
	return report.WithDisplayStatus(s.clock.now()), nil
}

func (s *taxReportService) DocumentLink(ctx context.Context, workspaceID, id uint) (*DocumentLink, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	report, err := s.find(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if report.DocumentStorageKey == "" {
		return nil, ErrDocumentMissing
	}

	url, expiresAt, err := s.storage.PresignDownload(ctx, report.DocumentStorageKey)
	if err != nil {
		logger.Error("Failed to presign report download", err, map[string]interface{}{
			"workspace_id": workspaceID,
			"report_id":    id,
		})
		return nil, err
	}
	return &DocumentLink{URL: url, ExpiresAt: expiresAt}, nil
}

func (s *taxReportService) afterChange(ctx context.Context, report *model.TaxReport, eventType model.ReportEventType, now time.Time) {
	if err := s.cache.Invalidate(ctx, report.WorkspaceID); err != nil {
		logger.Warn("Failed to invalidate summary cache", map[string]interface{}{
			"workspace_id": report.WorkspaceID,
			"error":        err.Error(),
		})
	}
	s.events.Publish(model.ReportEvent{
		Type:        eventType,
		WorkspaceID: report.WorkspaceID,
		ReportID:    report.ID,
		ReportType:  report.Type,
		PeriodLabel: report.PeriodLabel,
		Status:      report.Status,
		OccurredAt:  now,
	})
}
