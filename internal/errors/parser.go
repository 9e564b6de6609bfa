package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 저장소 에러를 사용자 친화적인 메시지와 코드로 변환
// 보안상 민감한 정보(SQL, 제약조건 원문)는 응답에 포함하지 않음
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Internal server error",
		}
	}

	errLower := strings.ToLower(err.Error())

	// 1. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: notFoundMessage(context),
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return parseDuplicateKeyError(errLower)
	}

	// 2. PostgreSQL / SQLite 제약조건 에러
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "Referenced record does not exist or is still in use",
		}
	}
	if strings.Contains(errLower, "violates not-null constraint") || strings.Contains(errLower, "not null constraint failed") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	// 3. 네트워크/연결 에러
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A downstream service is unavailable, please retry later",
		}
	}

	// 4. 기본 내부 서버 오류
	return ErrorInfo{
		Code:    InternalDatabaseError,
		Message: "Failed to " + context,
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errLower string) ErrorInfo {
	// 신고서 기간 중복 (workspace, type, period_start, period_end)
	if strings.Contains(errLower, "idx_tax_reports_period") || strings.Contains(errLower, "tax_reports.") {
		return ErrorInfo{
			Code:    TaxReportExists,
			Message: "A report of this type already exists for the period",
		}
	}

	// 스냅샷 중복 (workspace, source_type, source_id)
	if strings.Contains(errLower, "idx_tax_snapshots_source") || strings.Contains(errLower, "tax_snapshots.") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "The document has already been locked",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "Record already exists",
	}
}

func notFoundMessage(context string) string {
	switch {
	case strings.Contains(context, "report"):
		return "Tax report not found"
	case strings.Contains(context, "snapshot"):
		return "Tax snapshot not found"
	case strings.Contains(context, "profile"):
		return "Tax profile not found"
	default:
		return "Record not found"
	}
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint")
}
