package ledger

import (
	"errors"
	"fmt"
)

// ErrorType classifies a ledger error.
type ErrorType string

const (
	// ErrorTypeInvalidTransaction marks a structural shape violation caught at
	// admission: missing id, zero timestamp, or an unrecognized kind.
	ErrorTypeInvalidTransaction ErrorType = "INVALID_TRANSACTION"
	// ErrorTypeValidation marks a business-rule violation reported by the
	// admission validator before a transaction reaches the ledger.
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	// ErrorTypeCompliance marks a jurisdictional policy violation.
	ErrorTypeCompliance ErrorType = "COMPLIANCE_ERROR"
	// ErrorTypePersistence marks an unreadable or corrupt chain store, or a
	// disk I/O failure. It is fatal to the operation and never retried.
	ErrorTypePersistence ErrorType = "PERSISTENCE_ERROR"
)

// LedgerError is the error type surfaced by the ledger and its gates.
type LedgerError struct {
	Type    ErrorType `json:"errorType"`
	Message string    `json:"message"`
	TxID    string    `json:"txId,omitempty"`
	Details string    `json:"details,omitempty"`
	err     error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.TxID != "" {
		return fmt.Sprintf("[%s] (Tx: %s) %s", e.Type, e.TxID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error, for compatibility with errors.Is/As.
func (e *LedgerError) Unwrap() error {
	return e.err
}

// NewError creates a new LedgerError.
func NewError(errorType ErrorType, message string) *LedgerError {
	return &LedgerError{Type: errorType, Message: message}
}

func NewErrorf(errorType ErrorType, format string, args ...interface{}) *LedgerError {
	return &LedgerError{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

func (e *LedgerError) WithTxID(txID string) *LedgerError {
	e.TxID = txID
	return e
}

func (e *LedgerError) Wrap(err error) *LedgerError {
	e.err = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// IsErrorType reports whether err is a LedgerError of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Type == errorType
	}
	return false
}
