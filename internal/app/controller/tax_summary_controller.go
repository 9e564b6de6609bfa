package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
)

type TaxSummaryController struct {
	summary service.TaxSummaryService
}

func NewTaxSummaryController(summary service.TaxSummaryService) *TaxSummaryController {
	return &TaxSummaryController{summary: summary}
}

// GetSummary returns the dashboard VAT estimate
// GET /api/v1/tax/summary
func (ctrl *TaxSummaryController) GetSummary(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	summary, err := ctrl.summary.GetSummary(c.Request.Context(), workspaceID)
	if err != nil {
		respondServiceError(c, err, "load summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
	})
}
