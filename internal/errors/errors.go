package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Kiln error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrValidationFailed  ErrorCode = "VALIDATION_FAILED"   // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrVersionNotFound   ErrorCode = "VERSION_NOT_FOUND"   // 404
	ErrNameAlreadyExists ErrorCode = "NAME_ALREADY_EXISTS" // 409
	ErrConflict          ErrorCode = "CONFLICT"            // 409
	ErrStorageFailure    ErrorCode = "STORAGE_FAILURE"     // 500
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrGenerationFailed  ErrorCode = "GENERATION_FAILED"   // 502
)

// KilnError represents a structured error with code, status, and details.
type KilnError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error, if any. Never serialized.
	cause error
}

// Error implements the error interface.
func (e *KilnError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *KilnError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *KilnError {
	return &KilnError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewValidationFailed creates a 400 error when generated code fails a structural rule.
func NewValidationFailed(rule, reason string) *KilnError {
	return &KilnError{
		Code:    ErrValidationFailed,
		Status:  400,
		Message: fmt.Sprintf("code failed validation rule %q: %s", rule, reason),
		Details: map[string]any{"rule": rule, "reason": reason},
	}
}

// NewNotFound creates a 404 error. what names the missing thing ("component",
// "alias_blob", "documentation"), identifier names the lookup key.
func NewNotFound(what, identifier string) *KilnError {
	return &KilnError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", what, identifier),
		Details: map[string]any{"what": what, "identifier": identifier},
	}
}

// NewVersionNotFound creates a 404 error for a missing version row.
func NewVersionNotFound(name string, version int) *KilnError {
	return &KilnError{
		Code:    ErrVersionNotFound,
		Status:  404,
		Message: fmt.Sprintf("version %d not found for component %q", version, name),
		Details: map[string]any{"component": name, "version": version},
	}
}

// NewNameAlreadyExists creates a 409 error for name collisions.
func NewNameAlreadyExists(name string) *KilnError {
	return &KilnError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("component with name %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewConflict creates a 409 error when a commit lost the compare-and-swap on
// current_version. expected is the version the caller read.
func NewConflict(name string, expected int) *KilnError {
	return &KilnError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("component %q advanced past version %d; retry against the current version", name, expected),
		Details: map[string]any{"component": name, "expected_version": expected},
	}
}

// NewGenerationFailed creates a 502 error when the generator fails or returns
// unusable output.
func NewGenerationFailed(stage string, err error) *KilnError {
	msg := "generation failed"
	if err != nil {
		msg = err.Error()
	}
	return &KilnError{
		Code:    ErrGenerationFailed,
		Status:  502,
		Message: fmt.Sprintf("%s: %s", stage, msg),
		Details: map[string]any{"stage": stage},
		cause:   err,
	}
}

// NewStorageFailure creates a 500 error for blob or relational write failures.
// details describes what was partially applied, if anything.
func NewStorageFailure(err error, details map[string]any) *KilnError {
	msg := "storage failure"
	if err != nil {
		msg = err.Error()
	}
	return &KilnError{
		Code:    ErrStorageFailure,
		Status:  500,
		Message: msg,
		Details: details,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *KilnError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &KilnError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err is (or wraps) a KilnError with the given code.
func Is(err error, code ErrorCode) bool {
	var kErr *KilnError
	if stderrors.As(err, &kErr) {
		return kErr.Code == code
	}
	return false
}

// As returns the KilnError in err's chain, or nil.
func As(err error) *KilnError {
	var kErr *KilnError
	if stderrors.As(err, &kErr) {
		return kErr
	}
	return nil
}
