package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. All packages use these constants instead of
// hardcoded strings so the API layer can map them to HTTP statuses.
const (
	// Webhook request rejection (4xx, no side effect).
	ErrCodeWebhookInvalidTimestamp ErrorCode = "webhook_invalid_timestamp"
	ErrCodeWebhookStaleRequest     ErrorCode = "webhook_stale_request"
	ErrCodeWebhookInvalidSignature ErrorCode = "webhook_invalid_signature"
	ErrCodeValidationInvalidJSON   ErrorCode = "validation_invalid_json"

	// Not Found (404)
	ErrCodeNotFoundInvite ErrorCode = "not_found_invite"
	ErrCodeNotFoundDigest ErrorCode = "not_found_digest"

	// Misconfiguration (500): fatal at startup, per-request for the webhook.
	ErrCodeServiceMisconfigured ErrorCode = "service_misconfigured"

	// Rendering (500)
	ErrCodeTemplateUnavailable ErrorCode = "template_unavailable"

	// Upstream provider (502)
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamEmailProvider ErrorCode = "upstream_email_provider"

	// Internal (500)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"

	// CommitAnomaly marks a send that succeeded but whose durable sent
	// marker failed to persist. Log classification only; never an HTTP
	// response and never auto-retried (a retry would guarantee a
	// duplicate send).
	ErrCodeCommitAnomaly ErrorCode = "commit_anomaly"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case c == ErrCodeWebhookInvalidSignature:
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "webhook_"), strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type. Domain and handler errors
// are expressed as AppError to enable consistent formatting, HTTP status
// mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details
// that are safe to expose to clients.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// CodeOf extracts the ErrorCode from an error chain. Returns
// ErrCodeInternalUnexpected for errors that are not AppErrors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}
