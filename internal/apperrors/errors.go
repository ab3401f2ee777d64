package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError indicates bad input from the caller
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a missing link, lead or deposit
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a not found error for the named resource
func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ConflictError indicates an invalid state transition
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a conflict error with a formatted message
func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError indicates a reservation would exceed the available
// escrow balance. Distinct from ValidationError so callers can present a
// specific message.
type InsufficientFundsError struct {
	DepositID string
	Requested float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient escrow funds for deposit %s: requested %.2f", e.DepositID, e.Requested)
}

// StoreError wraps a transient failure from the backing store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as a store failure for the given operation
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsInsufficientFunds reports whether err is an InsufficientFundsError
func IsInsufficientFunds(err error) bool {
	var target *InsufficientFundsError
	return errors.As(err, &target)
}

// IsStore reports whether err is a StoreError
func IsStore(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}
