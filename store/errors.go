package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an item doesn't exist.
	ErrNotFound = errors.New("store: item not found")

	// ErrConditionFailed is returned when a write's condition expression did not hold.
	ErrConditionFailed = errors.New("store: condition check failed")

	// ErrInvalidRequest is returned when a request could not be built. It wraps
	// the expression error and always indicates a caller bug.
	ErrInvalidRequest = errors.New("store: invalid request")

	// ErrTooManyWrites is returned when a transaction exceeds MaxTransactItems.
	ErrTooManyWrites = errors.New("store: too many writes for one transaction")
)

// TransactionError is returned when DynamoDB cancels a transaction.
//
// Index is the position of the first write whose condition failed, or -1
// when the cancellation had another cause. Code is the first non-"None"
// cancellation reason code.
type TransactionError struct {
	Index int
	Code  string
	cause error
}

func (e *TransactionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("store: transaction write %d failed its condition", e.Index)
	}
	return fmt.Sprintf("store: transaction canceled (%s)", e.Code)
}

// Is reports a condition failure as ErrConditionFailed.
func (e *TransactionError) Is(target error) bool {
	return target == ErrConditionFailed && e.Index >= 0
}

func (e *TransactionError) Unwrap() error {
	return e.cause
}

// Conflicting reports whether the transaction lost a race with another
// transaction on the same items.
func (e *TransactionError) Conflicting() bool {
	return e.Code == "TransactionConflict"
}
