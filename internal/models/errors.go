package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrInvalidID         = errors.New("invalid ID format")
	ErrValidation        = errors.New("validation failed")
	ErrAlreadySettled    = errors.New("prediction already settled with a different result")
	ErrInvalidConfig     = errors.New("invalid strategy config")
	ErrInvalidTransition = errors.New("invalid run state transition")
	ErrInvalidRecord     = errors.New("malformed historical record")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// Error implements error
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets callers match any validation error with errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
