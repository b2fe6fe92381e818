package orders

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockConflict     = errors.New("stock conflict")
	ErrInvalidTransition = errors.New("invalid status change")
	ErrAlreadyRated      = errors.New("already rated")
	ErrForbidden         = errors.New("forbidden")

	// ErrNotRebuilt means a change was committed but the order could not be
	// read back afterwards.
	ErrNotRebuilt = errors.New("order committed but not rebuilt")
)

// Error is a domain failure carrying the message shown to the caller.
type Error struct {
	Kind      error
	Message   string
	ProductID int64 // set for stock and product failures
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

func validationErr(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func insufficientStock(productID int64) *Error {
	return &Error{
		Kind:      ErrInsufficientStock,
		Message:   fmt.Sprintf("Not enough stock for product ID %d", productID),
		ProductID: productID,
	}
}

func stockConflict(productID int64) *Error {
	return &Error{
		Kind:      ErrStockConflict,
		Message:   fmt.Sprintf("Stock for product ID %d changed during checkout, please try again", productID),
		ProductID: productID,
	}
}

func productNotFound(productID int64) *Error {
	return &Error{
		Kind:      ErrProductNotFound,
		Message:   fmt.Sprintf("Product ID %d not found", productID),
		ProductID: productID,
	}
}

var (
	errOrderNotFound = &Error{Kind: ErrOrderNotFound, Message: "Order not found"}
	errInvalidChange = &Error{Kind: ErrInvalidTransition, Message: "Invalid status change"}
	errForbidden     = &Error{Kind: ErrForbidden, Message: "Access denied"}
	errNotRebuilt    = &Error{Kind: ErrNotRebuilt, Message: "Order updated but could not fetch full details"}
	errNoDate        = &Error{Kind: ErrInvalidTransition, Message: "Cancelled orders have no delivery date"}
)
