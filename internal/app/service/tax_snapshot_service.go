package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"github.com/ikkim/taxfiling-backend/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrSnapshotNotFound     = errors.New("tax snapshot not found")
	ErrInvalidSnapshot      = errors.New("invalid tax snapshot input")
	ErrDocumentNotFound     = errors.New("source document not found")
	ErrDocumentNotFinalized = errors.New("source document is not finalized")
)

type LockSnapshotInput struct {
	WorkspaceID  uint
	SourceType   model.SnapshotSourceType
	SourceID     string
	Jurisdiction string
	Regime       model.TaxRegime    // "" = STANDARD_VAT
	RoundingMode model.RoundingMode // "" = HALF_UP
	Currency     string
	Breakdown    []model.SnapshotBreakdownLine
}

type TaxSnapshotService interface {
	Lock(ctx context.Context, input LockSnapshotInput) (*model.TaxSnapshot, bool, error)
	LockInvoice(ctx context.Context, workspaceID, invoiceID uint) (*model.TaxSnapshot, bool, error)
	LockExpense(ctx context.Context, workspaceID, expenseID uint) (*model.TaxSnapshot, bool, error)
	Get(ctx context.Context, workspaceID uint, sourceType model.SnapshotSourceType, sourceID string) (*model.TaxSnapshot, error)
	Breakdown(snapshot *model.TaxSnapshot) ([]model.SnapshotBreakdownLine, error)
}

type taxSnapshotService struct {
	snapshotRepo repository.TaxSnapshotRepository
	documentRepo repository.DocumentRepository
	profiles     TaxProfileService
	clock        Clock
}

func NewTaxSnapshotService(
	snapshotRepo repository.TaxSnapshotRepository,
	documentRepo repository.DocumentRepository,
	profiles TaxProfileService,
	clock Clock,
) TaxSnapshotService {
	return &taxSnapshotService{
		snapshotRepo: snapshotRepo,
		documentRepo: documentRepo,
		profiles:     profiles,
		clock:        clock,
	}
}

// Lock freezes the breakdown of one source document. Repeated calls for the
// same (workspace, source type, source id) return the stored snapshot as-is;
// the bool result reports whether this call created it.
func (s *taxSnapshotService) Lock(ctx context.Context, input LockSnapshotInput) (*model.TaxSnapshot, bool, error) {
	if err := validateLockInput(&input); err != nil {
		return nil, false, err
	}

	existing, err := s.snapshotRepo.FindBySource(ctx, input.WorkspaceID, input.SourceType, input.SourceID)
	if err == nil {
		logger.Debug("Tax snapshot already locked", map[string]interface{}{
			"workspace_id": input.WorkspaceID,
			"source_type":  input.SourceType,
			"source_id":    input.SourceID,
			"snapshot_id":  existing.ID,
		})
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	breakdown, err := json.Marshal(input.Breakdown)
	if err != nil {
		return nil, false, fmt.Errorf("encode breakdown: %w", err)
	}

	var subtotal, tax int64
	for _, line := range input.Breakdown {
		subtotal += line.NetCents
		tax += line.TaxCents
	}

	snapshot := &model.TaxSnapshot{
		WorkspaceID:   input.WorkspaceID,
		SourceType:    input.SourceType,
		SourceID:      input.SourceID,
		Jurisdiction:  input.Jurisdiction,
		Regime:        input.Regime,
		RoundingMode:  input.RoundingMode,
		Currency:      input.Currency,
		CalculatedAt:  s.clock.now().Truncate(time.Microsecond),
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		Breakdown:     string(breakdown),
		Version:       model.CurrentSnapshotVersion,
	}
	created, err := s.snapshotRepo.CreateIfAbsent(ctx, snapshot)
	if err != nil {
		return nil, false, err
	}

	// the stored row is returned in both cases so every caller sees the same bytes
	stored, err := s.snapshotRepo.FindBySource(ctx, input.WorkspaceID, input.SourceType, input.SourceID)
	if err != nil {
		return nil, false, err
	}

	if created {
		logger.Info("Tax snapshot locked", map[string]interface{}{
			"workspace_id": input.WorkspaceID,
			"source_type":  input.SourceType,
			"source_id":    input.SourceID,
			"tax_cents":    stored.TaxCents,
		})
	}
	return stored, created, nil
}

func validateLockInput(input *LockSnapshotInput) error {
	switch input.SourceType {
	case model.SnapshotSourceInvoice, model.SnapshotSourceExpense:
	default:
		return fmt.Errorf("%w: source type %q", ErrInvalidSnapshot, input.SourceType)
	}

	input.SourceID = strings.TrimSpace(input.SourceID)
	if input.SourceID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidSnapshot)
	}
	input.Jurisdiction = strings.ToUpper(strings.TrimSpace(input.Jurisdiction))
	if input.Jurisdiction == "" {
		return fmt.Errorf("%w: jurisdiction is required", ErrInvalidSnapshot)
	}
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if !currencyCodePattern.MatchString(input.Currency) {
		return fmt.Errorf("%w: currency %q", ErrInvalidSnapshot, input.Currency)
	}

	if input.Regime == "" {
		input.Regime = model.RegimeStandardVAT
	}
	switch input.RoundingMode {
	case "":
		input.RoundingMode = model.RoundingHalfUp
	case model.RoundingHalfUp, model.RoundingHalfEven:
	default:
		return fmt.Errorf("%w: rounding mode %q", ErrInvalidSnapshot, input.RoundingMode)
	}
	if input.Breakdown == nil {
		input.Breakdown = []model.SnapshotBreakdownLine{}
	}
	return nil
}

// LockInvoice snapshots a finalized invoice under the profile active on its issue date.
func (s *taxSnapshotService) LockInvoice(ctx context.Context, workspaceID, invoiceID uint) (*model.TaxSnapshot, bool, error) {
	invoice, err := s.documentRepo.FindInvoice(ctx, workspaceID, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrDocumentNotFound
		}
		return nil, false, err
	}
	if invoice.Status != model.DocumentStatusFinalized {
		return nil, false, ErrDocumentNotFinalized
	}

	profile, err := s.profiles.GetActive(ctx, workspaceID, invoice.IssueDate)
	if err != nil {
		return nil, false, err
	}

	line := rateLine(invoice.NetCents, invoice.TaxCents)
	if invoice.IntraCommunity {
		line.Label = "Intra-community supply (reverse charge)"
	}
	return s.Lock(ctx, LockSnapshotInput{
		WorkspaceID:  workspaceID,
		SourceType:   model.SnapshotSourceInvoice,
		SourceID:     strconv.FormatUint(uint64(invoice.ID), 10),
		Jurisdiction: profile.CountryCode,
		Regime:       profile.Regime,
		Currency:     invoice.Currency,
		Breakdown:    []model.SnapshotBreakdownLine{line},
	})
}

// LockExpense snapshots a finalized expense under the profile active on its transaction date.
func (s *taxSnapshotService) LockExpense(ctx context.Context, workspaceID, expenseID uint) (*model.TaxSnapshot, bool, error) {
	expense, err := s.documentRepo.FindExpense(ctx, workspaceID, expenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrDocumentNotFound
		}
		return nil, false, err
	}
	if expense.Status != model.DocumentStatusFinalized {
		return nil, false, ErrDocumentNotFinalized
	}

	profile, err := s.profiles.GetActive(ctx, workspaceID, expense.TransactionDate)
	if err != nil {
		return nil, false, err
	}

	return s.Lock(ctx, LockSnapshotInput{
		WorkspaceID:  workspaceID,
		SourceType:   model.SnapshotSourceExpense,
		SourceID:     strconv.FormatUint(uint64(expense.ID), 10),
		Jurisdiction: profile.CountryCode,
		Regime:       profile.Regime,
		Currency:     expense.Currency,
		Breakdown:    []model.SnapshotBreakdownLine{rateLine(expense.NetCents, expense.TaxCents)},
	})
}

func (s *taxSnapshotService) Get(ctx context.Context, workspaceID uint, sourceType model.SnapshotSourceType, sourceID string) (*model.TaxSnapshot, error) {
	snapshot, err := s.snapshotRepo.FindBySource(ctx, workspaceID, sourceType, sourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

// Breakdown decodes the stored breakdown of a version 1 snapshot.
func (s *taxSnapshotService) Breakdown(snapshot *model.TaxSnapshot) ([]model.SnapshotBreakdownLine, error) {
	if snapshot.Version != model.CurrentSnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}
	var lines []model.SnapshotBreakdownLine
	if err := json.Unmarshal([]byte(snapshot.Breakdown), &lines); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	return lines, nil
}

// rateLine derives the effective rate of a single-rate document, e.g. "VAT 19%".
func rateLine(netCents, taxCents int64) model.SnapshotBreakdownLine {
	bp := money.Prorate(10000, taxCents, netCents)
	return model.SnapshotBreakdownLine{
		Label:           fmt.Sprintf("VAT %s%%", decimal.New(bp, -2).String()),
		RateBasisPoints: bp,
		NetCents:        netCents,
		TaxCents:        taxCents,
	}
}
