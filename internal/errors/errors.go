package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the service-wide error carrier. Id is a stable machine-readable
// code, StatusCode the HTTP status the transport should answer with, and
// Field names the offending input for validation failures.
type AppError struct {
	Id            string `json:"id"`
	Status        string `json:"status"`
	StatusCode    int    `json:"code"`
	DetailedError string `json:"detail"`
	Field         string `json:"field,omitempty"`
	cause         error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Id, e.DetailedError, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Id, e.DetailedError)
}

func (e *AppError) Unwrap() error { return e.cause }

// WithCause attaches an underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

func newAppError(id string, statusCode int, detail string) *AppError {
	return &AppError{
		Id:            id,
		Status:        http.StatusText(statusCode),
		StatusCode:    statusCode,
		DetailedError: detail,
	}
}

// New returns an internal-fault error with the given detail.
func New(detail string) *AppError {
	return newAppError("action_analytics.internal", http.StatusInternalServerError, detail)
}

// Internal wraps an infrastructure fault (disk, upload, unexpected state).
func Internal(id string, cause error) *AppError {
	e := newAppError(id, http.StatusInternalServerError, "internal fault")
	e.cause = cause
	return e
}

// Validation rejects a malformed input before any task runs. field names the
// input that failed.
func Validation(field, detail string) *AppError {
	e := newAppError("action_analytics.validation", http.StatusBadRequest, detail)
	e.Field = field
	return e
}

// Unauthorized signals a request with no usable identity.
func Unauthorized(detail string) *AppError {
	return newAppError("action_analytics.unauthorized", http.StatusUnauthorized, detail)
}

// Forbidden signals a failed membership or permission check. It is never
// downgraded to a softer status.
func Forbidden(detail string) *AppError {
	return newAppError("action_analytics.forbidden", http.StatusForbidden, detail)
}

// NotFound signals a missing item or member.
func NotFound(detail string) *AppError {
	return newAppError("action_analytics.not_found", http.StatusNotFound, detail)
}

// EmptyDataset marks an export requested for an item with zero recorded
// actions. Kept distinct from infrastructure faults so callers can tell
// "nothing to export" from "export broke".
func EmptyDataset(itemID string) *AppError {
	return newAppError("action_analytics.export.empty", http.StatusNotFound,
		fmt.Sprintf("no action to export for item %s", itemID))
}

// ArchiveNotFound marks a receipt pointing at a now-missing artifact. It is
// handled internally by regenerating the archive and never reaches a caller
// unless regeneration also fails.
func ArchiveNotFound(objectPath string) *AppError {
	return newAppError("action_analytics.export.archive_not_found", http.StatusNotFound,
		fmt.Sprintf("archive %s was not found", objectPath))
}

// IsEmptyDataset reports whether err is the empty-dataset error.
func IsEmptyDataset(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Id == "action_analytics.export.empty"
}

// IsArchiveNotFound reports whether err marks a missing archive artifact.
func IsArchiveNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Id == "action_analytics.export.archive_not_found"
}

// AsAppError extracts an *AppError from err, or wraps err as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("action_analytics.internal", err)
}

// Is re-exports errors.Is so call sites need a single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As re-exports errors.As.
func As(err error, target any) bool { return errors.As(err, target) }
