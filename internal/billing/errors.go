package billing

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a malformed bill request. Never retried.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for field, tag := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s failed '%s' validation", field, tag))
	}
	return "invalid bill request: " + strings.Join(parts, "; ")
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StockError aborts a bill when a line cannot be fulfilled from the
// tenant's stock. Never retried.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
	NotFound    bool
}

func (e *StockError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("product %q (id %d) has no stock record for this franchise", e.ProductName, e.ProductID)
	}
	return fmt.Sprintf("Not enough stock for %s. Available: %d, requested: %d", e.ProductName, e.Available, e.Requested)
}

// NumberingConflictError means another writer took the bill number first.
// The engine restarts the attempt; it only escapes once retries run out.
type NumberingConflictError struct {
	BillNumber string
	Attempts   int
}

func (e *NumberingConflictError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("could not allocate a bill number after %d attempts (last tried %s)", e.Attempts, e.BillNumber)
	}
	return fmt.Sprintf("bill number %s already taken", e.BillNumber)
}

// StorageError wraps connectivity and transaction failures. Retryable marks
// contention errors (serialization failure, deadlock) that a fresh attempt
// can resolve.
type StorageError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

var (
	// ErrInsufficientStock is returned by a guarded decrement that matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// IsRetryable reports whether a failed attempt may be re-run from scratch.
func IsRetryable(err error) bool {
	var nc *NumberingConflictError
	if errors.As(err, &nc) {
		return true
	}
	var se *StorageError
	return errors.As(err, &se) && se.Retryable
}

// Kind names the error class for metrics and logs.
func Kind(err error) string {
	var (
		ve *ValidationError
		st *StockError
		nc *NumberingConflictError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &st):
		return "stock"
	case errors.As(err, &nc):
		return "numbering_conflict"
	default:
		return "storage"
	}
}
