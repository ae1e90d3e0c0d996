package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these, so callers can
// branch on the kind with errors.Is without knowing the specific error.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("resource not found")
	ErrPolicyViolation = errors.New("policy violation")
	ErrStorage         = errors.New("storage failure")
)

// Domain errors
var (
	ErrNameRequired        = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong         = fmt.Errorf("%w: name exceeds maximum length", ErrValidation)
	ErrTaxAmountOutOfRange = fmt.Errorf("%w: tax amount must be between 0 and 99.99 with at most two decimal places", ErrValidation)
	ErrInvalidTaxType      = fmt.Errorf("%w: invalid tax type", ErrValidation)
	ErrInvalidMonth        = fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	ErrInvalidPeriod       = fmt.Errorf("%w: period end is before start", ErrValidation)
	ErrInvalidPage         = fmt.Errorf("%w: invalid pagination", ErrValidation)

	ErrCategoryNameTaken = fmt.Errorf("%w: category name already in use", ErrConflict)

	ErrCategoryNotFound    = fmt.Errorf("%w: category not found", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("%w: transaction not found", ErrNotFound)
	ErrReceiptNotFound     = fmt.Errorf("%w: transaction has no receipt", ErrNotFound)

	ErrRetentionWindow = fmt.Errorf("%w: transaction can only be deleted after the 14-day retention window", ErrPolicyViolation)
)

// StorageError wraps a persistence failure for the given operation.
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
