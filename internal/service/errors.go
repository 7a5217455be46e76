package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("requested record not found")

	// ErrForbidden is returned on a role or shop-ownership violation.
	ErrForbidden = errors.New("permission denied")

	// ErrValidation is returned for malformed or semantically invalid input.
	ErrValidation = errors.New("invalid input")
)

// InsufficientStockError is returned when a factory decrement would drive
// the counter negative. The caller gets both sides of the comparison so it
// can render a precise message. Under concurrent fulfillment the loser of
// the row lock surfaces this same error after re-checking current stock.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (available: %d, requested: %d)",
		e.ProductName, e.Available, e.Requested)
}

// StateTransitionError is returned when a restock request status guard fails.
type StateTransitionError struct {
	RequestID string
	From      string
	To        string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("restock request %s cannot transition from %s to %s", e.RequestID, e.From, e.To)
}

// IsInsufficientStock reports whether err wraps an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsStateTransition reports whether err wraps a StateTransitionError.
func IsStateTransition(err error) bool {
	var target *StateTransitionError
	return errors.As(err, &target)
}
