package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProfileMissing = errors.New("no active tax profile")
	ErrProfileOverlap = errors.New("tax profile window overlaps an existing window")
	ErrInvalidProfile = errors.New("invalid tax profile")
)

var (
	countryCodePattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

type UpsertProfileInput struct {
	CountryCode         string
	Regime              model.TaxRegime
	VATEnabled          bool
	AccountingMethod    model.AccountingMethod
	FilingFrequency     model.FilingFrequency
	Currency            string
	TaxYearStartMonth   int
	HasCrossBorderSales bool
	HasEmployees        bool
	UsesTaxAdvisor      bool
	EffectiveFrom       *time.Time // nil = start of today (UTC)
}

type TaxProfileService interface {
	GetActive(ctx context.Context, workspaceID uint, at time.Time) (*model.TaxProfile, error)
	Upsert(ctx context.Context, workspaceID uint, input UpsertProfileInput) (*model.TaxProfile, error)
	History(ctx context.Context, workspaceID uint) ([]model.TaxProfile, error)
}

type taxProfileService struct {
	profileRepo repository.TaxProfileRepository
	txManager   repository.TransactionManager
	cache       SummaryCache
	clock       Clock
}

func NewTaxProfileService(
	profileRepo repository.TaxProfileRepository,
	txManager repository.TransactionManager,
	cache SummaryCache,
	clock Clock,
) TaxProfileService {
	if cache == nil {
		cache = nopSummaryCache{}
	}
	return &taxProfileService{
		profileRepo: profileRepo,
		txManager:   txManager,
		cache:       cache,
		clock:       clock,
	}
}

// GetActive returns ErrProfileMissing when no window contains at.
func (s *taxProfileService) GetActive(ctx context.Context, workspaceID uint, at time.Time) (*model.TaxProfile, error) {
	profile, err := s.profileRepo.FindActive(ctx, workspaceID, at)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, err
	}
	return profile, nil
}

// Upsert starts a new effective window at input.EffectiveFrom. An open window
// that starts earlier is closed at that instant; one that starts at the same
// instant is replaced in place. Windows never overlap.
func (s *taxProfileService) Upsert(ctx context.Context, workspaceID uint, input UpsertProfileInput) (*model.TaxProfile, error) {
	profile, err := s.buildProfile(workspaceID, input)
	if err != nil {
		logger.Warn("Rejected tax profile input", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		open, err := s.profileRepo.FindOpen(txCtx, workspaceID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if open != nil {
			switch {
			case open.EffectiveFrom.Equal(profile.EffectiveFrom):
				profile.ID = open.ID
				profile.CreatedAt = open.CreatedAt
				return s.profileRepo.Update(txCtx, profile)
			case open.EffectiveFrom.Before(profile.EffectiveFrom):
				closedAt := profile.EffectiveFrom
				open.EffectiveTo = &closedAt
				if err := s.profileRepo.Update(txCtx, open); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: open window starts %s", ErrProfileOverlap, open.EffectiveFrom.Format(time.RFC3339))
			}
		}

		overlap, err := s.profileRepo.HasOverlap(txCtx, workspaceID, profile.EffectiveFrom, nil, 0)
		if err != nil {
			return err
		}
		if overlap {
			return ErrProfileOverlap
		}
		return s.profileRepo.Create(txCtx, profile)
	})
	if err != nil {
		if errors.Is(err, ErrProfileOverlap) {
			logger.Warn("Tax profile window overlaps", map[string]interface{}{
				"workspace_id":   workspaceID,
				"effective_from": profile.EffectiveFrom,
			})
		} else {
			logger.Error("Failed to upsert tax profile", err, map[string]interface{}{
				"workspace_id": workspaceID,
			})
		}
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, workspaceID); err != nil {
		logger.Warn("Failed to invalidate summary cache", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
	}

	logger.Info("Tax profile upserted", map[string]interface{}{
		"workspace_id":      workspaceID,
		"profile_id":        profile.ID,
		"country":           profile.CountryCode,
		"regime":            profile.Regime,
		"accounting_method": profile.AccountingMethod,
		"effective_from":    profile.EffectiveFrom,
	})
	return profile, nil
}

func (s *taxProfileService) History(ctx context.Context, workspaceID uint) ([]model.TaxProfile, error) {
	return s.profileRepo.ListByWorkspace(ctx, workspaceID)
}

func (s *taxProfileService) buildProfile(workspaceID uint, input UpsertProfileInput) (*model.TaxProfile, error) {
	country := strings.ToUpper(strings.TrimSpace(input.CountryCode))
	if !countryCodePattern.MatchString(country) {
		return nil, fmt.Errorf("%w: country code %q", ErrInvalidProfile, input.CountryCode)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}
	if !currencyCodePattern.MatchString(currency) {
		return nil, fmt.Errorf("%w: currency %q", ErrInvalidProfile, input.Currency)
	}

	regime := input.Regime
	if regime == "" {
		regime = model.RegimeStandardVAT
	}
	if regime != model.RegimeStandardVAT && regime != model.RegimeSmallBusiness {
		return nil, fmt.Errorf("%w: regime %q", ErrInvalidProfile, input.Regime)
	}

	method := input.AccountingMethod
	if method == "" {
		method = model.AccountingAccrual
	}
	if method != model.AccountingAccrual && method != model.AccountingCash {
		return nil, fmt.Errorf("%w: accounting method %q", ErrInvalidProfile, input.AccountingMethod)
	}

	frequency := input.FilingFrequency
	if frequency == "" {
		frequency = model.FilingQuarterly
	}
	switch frequency {
	case model.FilingMonthly, model.FilingQuarterly, model.FilingAnnual:
	default:
		return nil, fmt.Errorf("%w: filing frequency %q", ErrInvalidProfile, input.FilingFrequency)
	}

	startMonth := input.TaxYearStartMonth
	if startMonth == 0 {
		startMonth = 1
	}
	if startMonth < 1 || startMonth > 12 {
		return nil, fmt.Errorf("%w: tax year start month %d", ErrInvalidProfile, input.TaxYearStartMonth)
	}

	var from time.Time
	if input.EffectiveFrom != nil {
		from = input.EffectiveFrom.UTC()
	} else {
		now := s.clock.now()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	return &model.TaxProfile{
		WorkspaceID:         workspaceID,
		CountryCode:         country,
		Regime:              regime,
		VATEnabled:          input.VATEnabled,
		AccountingMethod:    method,
		FilingFrequency:     frequency,
		Currency:            currency,
		TaxYearStartMonth:   startMonth,
		HasCrossBorderSales: input.HasCrossBorderSales,
		HasEmployees:        input.HasEmployees,
		UsesTaxAdvisor:      input.UsesTaxAdvisor,
		EffectiveFrom:       from,
	}, nil
}
