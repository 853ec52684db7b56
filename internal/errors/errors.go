// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrGatewayDown      = errors.New("order gateway unavailable")
	ErrQuoteSourceDown  = errors.New("quote source unavailable")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrNoContract       = errors.New("no tradeable contract this cycle")
	ErrTimeout          = errors.New("operation timed out")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
)

// ResolutionError reports a symbol that could not be resolved to an
// instrument. Resolution errors are local: a multi-symbol cycle skips the
// symbol and continues.
type ResolutionError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolution error [%s]: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolution error [%s]: %s", e.Symbol, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(symbol, reason string, err error) *ResolutionError {
	return &ResolutionError{Symbol: symbol, Reason: reason, Err: err}
}

// QuoteError reports a quote fetch failure. A partial batch is not a
// QuoteError; only symbols with no data at all surface one.
type QuoteError struct {
	Symbols []string
	Message string
	Err     error
}

func (e *QuoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quote error (%d symbols): %s: %v", len(e.Symbols), e.Message, e.Err)
	}
	return fmt.Sprintf("quote error (%d symbols): %s", len(e.Symbols), e.Message)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

// NewQuoteError creates a new QuoteError.
func NewQuoteError(symbols []string, message string, err error) *QuoteError {
	return &QuoteError{Symbols: symbols, Message: message, Err: err}
}

// SubmissionError reports a gateway rejection of a single leg. Sibling
// legs keep going; the batch result carries the mixed state.
type SubmissionError struct {
	Symbol   string
	Exchange string
	Side     string
	Reason   string
	Err      error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission error [%s %s %s]: %s: %v", e.Side, e.Symbol, e.Exchange, e.Reason, e.Err)
	}
	return fmt.Sprintf("submission error [%s %s %s]: %s", e.Side, e.Symbol, e.Exchange, e.Reason)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// NewSubmissionError creates a new SubmissionError.
func NewSubmissionError(symbol, exchange, side, reason string, err error) *SubmissionError {
	return &SubmissionError{Symbol: symbol, Exchange: exchange, Side: side, Reason: reason, Err: err}
}

// ReconciliationError reports a failed status query. The leg's status is
// left unchanged and retried on the next poll; a failed query never
// implies success or failure of the order itself.
type ReconciliationError struct {
	OrderID string
	Err     error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation error [%s]: %v", e.OrderID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// NewReconciliationError creates a new ReconciliationError.
func NewReconciliationError(orderID string, err error) *ReconciliationError {
	return &ReconciliationError{OrderID: orderID, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
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
