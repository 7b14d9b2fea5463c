package service

import (
	"errors"
	"fmt"
)

// ErrInsightsDisabled is returned when no insight generator is configured.
var ErrInsightsDisabled = errors.New("insights are not enabled")

// ValidationError represents a rejected history document or request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProcessingError represents an error that occurred while reading or processing a document.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// InsightError is a failed call to the insight generator.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type InsightError struct {
	Operation string
	Cause     error
}

func (e *InsightError) Error() string {
	return fmt.Sprintf("insight %s failed: %v", e.Operation, e.Cause)
}

func (e *InsightError) Unwrap() error {
	return e.Cause
}
