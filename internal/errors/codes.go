package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized     = "AUTH_UNAUTHORIZED"      // 로그인 필요
	AuthTokenExpired     = "AUTH_TOKEN_EXPIRED"     // 토큰 만료
	AuthTokenInvalid     = "AUTH_TOKEN_INVALID"     // 잘못된 토큰
	AuthWorkspaceMissing = "AUTH_WORKSPACE_MISSING" // 토큰에 워크스페이스 없음

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE" // 범위 초과
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 세무 (TAX_) ====================
	TaxInvalidPeriodKey      = "TAX_INVALID_PERIOD_KEY"     // 잘못된 기간 키
	TaxInvalidPeriodRange    = "TAX_INVALID_PERIOD_RANGE"   // 잘못된 기간 범위
	TaxProfileMissing        = "TAX_PROFILE_MISSING"        // 세무 설정 없음
	TaxProfileOverlap        = "TAX_PROFILE_OVERLAP"        // 유효 기간 중복
	TaxReportNotFound        = "TAX_REPORT_NOT_FOUND"       // 신고서 없음
	TaxReportExists          = "TAX_REPORT_EXISTS"          // 같은 기간 신고서 존재
	TaxConflictingTransition = "TAX_CONFLICTING_TRANSITION" // 허용되지 않는 상태 전이
	TaxUnknownReportType     = "TAX_UNKNOWN_REPORT_TYPE"    // 등록되지 않은 신고 유형
	TaxSnapshotNotFound      = "TAX_SNAPSHOT_NOT_FOUND"     // 스냅샷 없음
	TaxDocumentMissing       = "TAX_DOCUMENT_MISSING"       // 첨부 문서 없음
	TaxStorageUnavailable    = "TAX_STORAGE_UNAVAILABLE"    // 파일 저장소 미설정

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
)
