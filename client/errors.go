package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrTokenRequired  = errors.New("access token is required, run 'photoshelf-cli login'")
	ErrConfigRequired = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoPaths   = errors.New("no paths provided")
	ErrEmptyPath = errors.New("path is required")
	ErrNoIDs     = errors.New("no photo ids provided")
)

// APIError is an error response from the server. Code and Message come from
// the {"error","message"} body when the server sent one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("server error: %d %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("server error: %d %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("server error: %d", e.StatusCode)
	}
}

// Is reports whether target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Sentinel errors for common API conditions. Use errors.Is to check for them.
var (
	ErrNotFound       = &APIError{StatusCode: http.StatusNotFound}
	ErrUnauthorized   = &APIError{StatusCode: http.StatusUnauthorized}
	ErrConflict       = &APIError{StatusCode: http.StatusConflict}
	ErrInvalidInput   = &APIError{StatusCode: http.StatusBadRequest}
	ErrContentMissing = &APIError{StatusCode: http.StatusGone}
	ErrBlobStore      = &APIError{StatusCode: http.StatusBadGateway}
)

// codeStatus recovers the status for per-file upload errors, which carry only
// the error code.
var codeStatus = map[string]int{
	"not_found":        http.StatusNotFound,
	"invalid_input":    http.StatusBadRequest,
	"unauthorized":     http.StatusUnauthorized,
	"conflict":         http.StatusConflict,
	"content_missing":  http.StatusGone,
	"too_large":        http.StatusRequestEntityTooLarge,
	"blob_store_error": http.StatusBadGateway,
}

func apiErrorFromBody(code, message string) *APIError {
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &APIError{StatusCode: status, Code: code, Message: message}
}
