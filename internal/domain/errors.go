package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every business error wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrPrecondition = errors.New("precondition failed")
)

var kinds = []error{ErrValidation, ErrNotFound, ErrInvalidState, ErrConflict, ErrPrecondition}

var (
	// Cash register errors
	ErrRegisterNotFound    = fmt.Errorf("%w: cash register not found", ErrNotFound)
	ErrRegisterAlreadyOpen = fmt.Errorf("%w: a cash register is already open", ErrConflict)
	ErrRegisterClosed      = fmt.Errorf("%w: cash register is closed", ErrInvalidState)
	ErrNoOpenRegister      = fmt.Errorf("%w: no open register", ErrPrecondition)
	ErrMovementNotFound    = fmt.Errorf("%w: movement not found", ErrNotFound)
	ErrInsufficientFunds   = fmt.Errorf("%w: insufficient funds in cash register", ErrValidation)

	// Billing errors
	ErrAccountNotFound      = fmt.Errorf("%w: billing account not found", ErrNotFound)
	ErrAccountPaid          = fmt.Errorf("%w: billing account is already paid", ErrInvalidState)
	ErrAccountCancelled     = fmt.Errorf("%w: billing account is cancelled", ErrInvalidState)
	ErrPaymentExceedsAmount = fmt.Errorf("%w: payment exceeds remaining amount", ErrValidation)
	ErrAlreadyBilled        = fmt.Errorf("%w: a charge already exists for this enrollment and period", ErrConflict)
	ErrAccountHasPayments   = fmt.Errorf("%w: billing account has payments", ErrInvalidState)

	// Enrollment and catalog errors
	ErrEnrollmentNotFound    = fmt.Errorf("%w: enrollment not found", ErrNotFound)
	ErrEnrollmentHasPayments = fmt.Errorf("%w: enrollment has paid charges and cannot be deleted", ErrInvalidState)
	ErrEnrollmentInactive    = fmt.Errorf("%w: enrollment is already inactive", ErrInvalidState)
	ErrEnrollmentActive      = fmt.Errorf("%w: enrollment is already active", ErrInvalidState)
	ErrPlanNotFound          = fmt.Errorf("%w: plan not found", ErrNotFound)
	ErrPlanInactive          = fmt.Errorf("%w: plan is inactive", ErrValidation)
	ErrDiscountNotFound      = fmt.Errorf("%w: discount not found", ErrNotFound)
	ErrDiscountInactive      = fmt.Errorf("%w: discount is inactive", ErrValidation)
	ErrDiscountExceedsAmount = fmt.Errorf("%w: discount exceeds the base amount", ErrValidation)
	ErrStudentNotFound       = fmt.Errorf("%w: student not found", ErrNotFound)
	ErrEmployeeNotFound      = fmt.Errorf("%w: employee not found", ErrNotFound)
	ErrClassNotFound         = fmt.Errorf("%w: class not found", ErrNotFound)
	ErrUserNotFound          = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUserAlreadyExists     = fmt.Errorf("%w: user with this email already exists", ErrConflict)
	ErrMissingTenant         = errors.New("tenant not present in context")
)

// NewValidationError builds a validation error with a formatted message.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NewInvalidStateError builds an invalid state error with a formatted message.
func NewInvalidStateError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Kind returns the kind sentinel wrapped by err, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the display text of a business error without its kind prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if k := Kind(err); k != nil {
		msg = strings.TrimPrefix(msg, k.Error()+": ")
	}
	return msg
}
