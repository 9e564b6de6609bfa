package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
	apperrors "github.com/ikkim/taxfiling-backend/internal/errors"
	"github.com/ikkim/taxfiling-backend/internal/middleware"
)

type TaxProfileController struct {
	profiles service.TaxProfileService
	clock    service.Clock
}

func NewTaxProfileController(profiles service.TaxProfileService, clock service.Clock) *TaxProfileController {
	if clock == nil {
		clock = service.SystemClock
	}
	return &TaxProfileController{
		profiles: profiles,
		clock:    clock,
	}
}

type UpsertProfileRequest struct {
	CountryCode         string                 `json:"country_code" binding:"required"`
	Regime              model.TaxRegime        `json:"regime"`
	VATEnabled          bool                   `json:"vat_enabled"`
	AccountingMethod    model.AccountingMethod `json:"accounting_method"`
	FilingFrequency     model.FilingFrequency  `json:"filing_frequency"`
	Currency            string                 `json:"currency"`
	TaxYearStartMonth   int                    `json:"tax_year_start_month"`
	HasCrossBorderSales bool                   `json:"has_cross_border_sales"`
	HasEmployees        bool                   `json:"has_employees"`
	UsesTaxAdvisor      bool                   `json:"uses_tax_advisor"`
	EffectiveFrom       string                 `json:"effective_from"` // YYYY-MM-DD, default today
}

// GetProfile returns the active profile and its history
// GET /api/v1/tax/profile
func (ctrl *TaxProfileController) GetProfile(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	active, err := ctrl.profiles.GetActive(c.Request.Context(), workspaceID, ctrl.clock().UTC())
	if err != nil {
		if errors.Is(err, service.ErrProfileMissing) {
			apperrors.NotFound(c, apperrors.TaxProfileMissing, "No tax profile is active")
			return
		}
		respondServiceError(c, err, "load profile")
		return
	}

	history, err := ctrl.profiles.History(c.Request.Context(), workspaceID)
	if err != nil {
		respondServiceError(c, err, "load profile history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": active,
		"history": history,
	})
}

// UpsertProfile starts a new effective window
// PUT /api/v1/tax/profile
func (ctrl *TaxProfileController) UpsertProfile(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	var req UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid profile request", map[string]interface{}{
			"workspace_id": workspaceID,
			"error":        err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}
	from, err := parseDate(req.EffectiveFrom)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "effective_from must be YYYY-MM-DD")
		return
	}

	profile, err := ctrl.profiles.Upsert(c.Request.Context(), workspaceID, service.UpsertProfileInput{
		CountryCode:         req.CountryCode,
		Regime:              req.Regime,
		VATEnabled:          req.VATEnabled,
		AccountingMethod:    req.AccountingMethod,
		FilingFrequency:     req.FilingFrequency,
		Currency:            req.Currency,
		TaxYearStartMonth:   req.TaxYearStartMonth,
		HasCrossBorderSales: req.HasCrossBorderSales,
		HasEmployees:        req.HasEmployees,
		UsesTaxAdvisor:      req.UsesTaxAdvisor,
		EffectiveFrom:       from,
	})
	if err != nil {
		respondServiceError(c, err, "save profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": profile,
	})
}
