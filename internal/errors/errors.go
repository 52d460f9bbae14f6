// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientHistory = errors.New("insufficient price history")
	ErrNonConvergence      = errors.New("numeric solver did not converge")
	ErrDataNotFound        = errors.New("data not found")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrDatabaseError       = errors.New("database error")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
)

// ValidationError represents a rejected kernel input.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match any validation failure with ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error for one ticker.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// NewInsufficientHistory reports a series shorter than a scorer requires.
func NewInsufficientHistory(symbol string, have, need int) *DataError {
	return NewDataError("prices", symbol,
		fmt.Sprintf("need %d observations, have %d", need, have), ErrInsufficientHistory)
}

// ConvergenceError reports a solver that exhausted its iteration budget.
type ConvergenceError struct {
	Solver     string
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations (residual %.6f)", e.Solver, e.Iterations, e.Residual)
}

func (e *ConvergenceError) Unwrap() error {
	return ErrNonConvergence
}

// NewConvergenceError creates a new ConvergenceError.
func NewConvergenceError(solver string, iterations int, residual float64) *ConvergenceError {
	return &ConvergenceError{
		Solver:     solver,
		Iterations: iterations,
		Residual:   residual,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
