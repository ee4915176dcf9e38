// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, tickers, grids and prices
//   - Data/Resource errors (200-299): Missing rows, failed queries, empty candle sets
//   - Indicator errors (300-399): Indicator lookup and calculation errors
//   - Strategy errors (400-499): Strategy construction and runtime errors
//   - Trading errors (500-599): Exchange and position errors
//   - Backtest errors (600-699): Simulation configuration and state errors
//   - Optimizer errors (700-799): Parameter search errors
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy %q", name)
//	if errors.HasCode(err, errors.ErrCodeUnsupportedStrategy) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientCandlesError is returned when a market or indicator does not have
// enough candles to be activated.
type InsufficientCandlesError struct {
	Required int
	Actual   int
	Ticker   string
}

// NewInsufficientCandlesError creates a new InsufficientCandlesError.
func NewInsufficientCandlesError(required, actual int, ticker string) *InsufficientCandlesError {
	return &InsufficientCandlesError{
		Required: required,
		Actual:   actual,
		Ticker:   ticker,
	}
}

// Error implements the error interface.
func (e *InsufficientCandlesError) Error() string {
	return fmt.Sprintf("%s: need %d candles, have %d", e.Ticker, e.Required, e.Actual)
}

// IsInsufficientCandles checks the error chain for an InsufficientCandlesError.
func IsInsufficientCandles(err error) bool {
	var insufficientErr *InsufficientCandlesError

	return errors.As(err, &insufficientErr)
}
