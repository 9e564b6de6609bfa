package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
	apperrors "github.com/ikkim/taxfiling-backend/internal/errors"
	"github.com/ikkim/taxfiling-backend/internal/middleware"
)

type TaxSnapshotController struct {
	snapshots service.TaxSnapshotService
}

func NewTaxSnapshotController(snapshots service.TaxSnapshotService) *TaxSnapshotController {
	return &TaxSnapshotController{
		snapshots: snapshots,
	}
}

// LockSnapshotRequest locks a stored invoice or expense by id, or an explicit
// breakdown computed elsewhere when breakdown is given.
type LockSnapshotRequest struct {
	SourceType   model.SnapshotSourceType      `json:"source_type" binding:"required"`
	SourceID     string                        `json:"source_id" binding:"required"`
	Jurisdiction string                        `json:"jurisdiction"`
	Regime       model.TaxRegime               `json:"regime"`
	RoundingMode model.RoundingMode            `json:"rounding_mode"`
	Currency     string                        `json:"currency"`
	Breakdown    []model.SnapshotBreakdownLine `json:"breakdown"`
}

// Lock
// POST /api/v1/tax/snapshots
func (ctrl *TaxSnapshotController) Lock(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	var req LockSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "source_type and source_id are required")
		return
	}
	req.SourceType = model.SnapshotSourceType(strings.ToUpper(string(req.SourceType)))

	var (
		snapshot *model.TaxSnapshot
		created  bool
		err      error
	)
	if len(req.Breakdown) == 0 {
		id, parseErr := strconv.ParseUint(req.SourceID, 10, 32)
		if parseErr != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "source_id must be a document id when no breakdown is given")
			return
		}
		switch req.SourceType {
		case model.SnapshotSourceInvoice:
			snapshot, created, err = ctrl.snapshots.LockInvoice(c.Request.Context(), workspaceID, uint(id))
		case model.SnapshotSourceExpense:
			snapshot, created, err = ctrl.snapshots.LockExpense(c.Request.Context(), workspaceID, uint(id))
		default:
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown source_type")
			return
		}
	} else {
		snapshot, created, err = ctrl.snapshots.Lock(c.Request.Context(), service.LockSnapshotInput{
			WorkspaceID:  workspaceID,
			SourceType:   req.SourceType,
			SourceID:     req.SourceID,
			Jurisdiction: req.Jurisdiction,
			Regime:       req.Regime,
			RoundingMode: req.RoundingMode,
			Currency:     req.Currency,
			Breakdown:    req.Breakdown,
		})
	}
	if err != nil {
		respondServiceError(c, err, "lock snapshot")
		return
	}

	breakdown, err := ctrl.snapshots.Breakdown(snapshot)
	if err != nil {
		respondServiceError(c, err, "decode snapshot")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		log.Info("Tax snapshot locked", map[string]interface{}{
			"workspace_id": workspaceID,
			"snapshot_id":  snapshot.ID,
		})
	}
	c.JSON(status, gin.H{
		"snapshot":  snapshot,
		"breakdown": breakdown,
		"created":   created,
	})
}

// Get
// GET /api/v1/tax/snapshots/:source_type/:source_id
func (ctrl *TaxSnapshotController) Get(c *gin.Context) {
	workspaceID, ok := requireWorkspace(c)
	if !ok {
		return
	}

	sourceType := model.SnapshotSourceType(strings.ToUpper(c.Param("source_type")))
	snapshot, err := ctrl.snapshots.Get(c.Request.Context(), workspaceID, sourceType, c.Param("source_id"))
	if err != nil {
		respondServiceError(c, err, "load snapshot")
		return
	}

	breakdown, err := ctrl.snapshots.Breakdown(snapshot)
	if err != nil {
		respondServiceError(c, err, "decode snapshot")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot":  snapshot,
		"breakdown": breakdown,
	})
}
