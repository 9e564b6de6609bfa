package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
	apperrors "github.com/ikkim/taxfiling-backend/internal/errors"
	"github.com/ikkim/taxfiling-backend/internal/middleware"
	"github.com/ikkim/taxfiling-backend/pkg/period"
)

const dateLayout = "2006-01-02"

// respondServiceError maps service sentinels to status codes. Anything else is
// logged and answered with the parsed storage error.
func respondServiceError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrReportNotFound):
		apperrors.NotFound(c, apperrors.TaxReportNotFound, "Tax report not found")
	case errors.Is(err, service.ErrSnapshotNotFound):
		apperrors.NotFound(c, apperrors.TaxSnapshotNotFound, "Tax snapshot not found")
	case errors.Is(err, service.ErrDocumentNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "Source document not found")
	case errors.Is(err, service.ErrDocumentMissing):
		apperrors.NotFound(c, apperrors.TaxDocumentMissing, "No document is attached to this report")
	case errors.Is(err, service.ErrConflictingTransition):
		apperrors.Conflict(c, apperrors.TaxConflictingTransition, err.Error())
	case errors.Is(err, service.ErrReportAlreadyExists):
		apperrors.Conflict(c, apperrors.TaxReportExists, "A report of this type already exists for the period")
	case errors.Is(err, service.ErrProfileOverlap):
		apperrors.Conflict(c, apperrors.TaxProfileOverlap, err.Error())
	case errors.Is(err, service.ErrProfileMissing):
		apperrors.UnprocessableEntity(c, apperrors.TaxProfileMissing, "No tax profile is active for this period")
	case errors.Is(err, service.ErrDocumentNotFinalized):
		apperrors.UnprocessableEntity(c, apperrors.ValidationInvalidInput, "Only finalized documents can be locked")
	case errors.Is(err, period.ErrInvalidPeriodKey):
		apperrors.BadRequest(c, apperrors.TaxInvalidPeriodKey, err.Error())
	case errors.Is(err, service.ErrInvalidPeriodRange):
		apperrors.BadRequest(c, apperrors.TaxInvalidPeriodRange, "Period end must be after period start")
	case errors.Is(err, service.ErrUnknownReportType):
		apperrors.BadRequest(c, apperrors.TaxUnknownReportType, err.Error())
	case errors.Is(err, service.ErrArchiveReasonRequired):
		apperrors.BadRequest(c, apperrors.ValidationRequired, "An archive reason is required")
	case errors.Is(err, service.ErrInvalidReportStatus),
		errors.Is(err, service.ErrInvalidProfile),
		errors.Is(err, service.ErrInvalidSnapshot),
		errors.Is(err, service.ErrInvalidStorageKey):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.TaxStorageUnavailable, "Document storage is not configured")
	default:
		info := apperrors.ParseError(err, action)
		log.Error("Failed to "+action, err, map[string]interface{}{
			"code": info.Code,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
	}
}

// requireWorkspace returns the tenant resolved by the auth middleware.
func requireWorkspace(c *gin.Context) (uint, bool) {
	workspaceID, ok := middleware.GetWorkspaceID(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Request without workspace", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return workspaceID, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parseDate reads a YYYY-MM-DD date as midnight UTC. An empty string yields nil.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
