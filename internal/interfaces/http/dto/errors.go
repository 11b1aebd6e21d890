package dto

import (
	"net/http"

	"github.com/erp/collections/internal/domain/shared"
)

// Domain error codes, passed through to clients unchanged
const (
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeValidation          = shared.CodeValidation
	ErrCodeAllocation          = shared.CodeAllocation
	ErrCodeCreditLimitExceeded = shared.CodeCreditLimitExceeded
	ErrCodeForbidden           = shared.CodeForbidden
	ErrCodeConflict            = shared.CodeConflict
	ErrCodeUnauthorized        = shared.CodeUnauthorized
	ErrCodeInvalidState        = shared.CodeInvalidState
	ErrCodeConcurrencyConflict = shared.CodeConcurrencyConflict
)

// Transport error codes
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeRequestTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeAllocation:          http.StatusUnprocessableEntity,
	ErrCodeCreditLimitExceeded: http.StatusUnprocessableEntity,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
