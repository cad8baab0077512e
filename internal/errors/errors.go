// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrTradeAlreadyOpen  = errors.New("trade already open for symbol")
	ErrNoOpenTrade       = errors.New("no open trade for symbol")
	ErrInvalidTrade      = errors.New("invalid trade")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrDataNotFound      = errors.New("data not found")
	ErrDatabaseError     = errors.New("database error")
	ErrBridgeUnavailable = errors.New("execution bridge unavailable")
	ErrOutsideSession    = errors.New("outside trading session")
	ErrCooldownActive    = errors.New("cooldown active")
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match ErrConfigInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	Resolution string
	Symbol     string
	Message    string
	Err        error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.Resolution, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.Resolution, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(resolution, symbol, message string, err error) *DataError {
	return &DataError{
		Resolution: resolution,
		Symbol:     symbol,
		Message:    message,
		Err:        err,
	}
}

// CooldownError reports how long a symbol must wait before the next signal.
type CooldownError struct {
	Symbol    string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active for %s: %s remaining", e.Symbol, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// BridgeError represents a failure handing a trade to the execution venue.
type BridgeError struct {
	TradeID string
	Op      string
	Err     error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge error [%s] %s: %v", e.TradeID, e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// NewBridgeError creates a new BridgeError.
func NewBridgeError(tradeID, op string, err error) *BridgeError {
	return &BridgeError{
		TradeID: tradeID,
		Op:      op,
		Err:     err,
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
