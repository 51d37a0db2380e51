package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports user-correctable input problems. InvalidFiles lists
// the original names of rejected uploads, if any.
type ValidationError struct {
	Message      string
	InvalidFiles []string
}

func (e *ValidationError) Error() string {
	if len(e.InvalidFiles) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.InvalidFiles, ", "))
}

// NewValidationError creates a validation error without file details
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing batch, session or user.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// EncodeError wraps a failure while re-encoding a single uploaded file.
type EncodeError struct {
	FileName string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.FileName, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// BuildError wraps a failure while building a batch archive.
type BuildError struct {
	BatchID string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build archive for batch %s: %v", e.BatchID, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error of the taxonomy to its HTTP status code.
// Unknown errors are server errors.
func HTTPStatus(err error) int {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
