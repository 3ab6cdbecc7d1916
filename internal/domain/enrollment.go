package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus is the state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "ACTIVE"
	EnrollmentInactive EnrollmentStatus = "INACTIVE"
)

// FirstChargeGraceDays is the offset of the first due date when no due day applies.
const FirstChargeGraceDays = 5

// Enrollment is a student's subscription to a plan.
type Enrollment struct {
	ID                 string
	TenantID           string
	Code               string
	StudentID          string
	PlanID             string
	ClassID            *string
	DiscountID         *string
	StartDate          time.Time
	EndDate            time.Time
	DueDay             *int
	OriginalPrice      decimal.Decimal
	DiscountAmount     decimal.Decimal
	FinalPrice         decimal.Decimal
	Status             EnrollmentStatus
	InactivationReason string
	Installments       int
	PaymentMethod      PaymentMethod
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Valuate returns plan price, discount and final price. discount may be nil.
func Valuate(plan *Plan, discount *Discount) (original, off, final decimal.Decimal, err error) {
	original = RoundMoney(plan.Price)
	off = decimal.Zero
	if discount != nil {
		off, err = discount.AmountFor(original)
		if err != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, err
		}
	}
	return original, off, original.Sub(off), nil
}

// Apply snapshots price and validity window from plan and discount.
// requestedDueDay is honoured only for recurring plans.
func (e *Enrollment) Apply(plan *Plan, discount *Discount, requestedDueDay *int) error {
	if !plan.Active {
		return ErrPlanInactive
	}
	if requestedDueDay != nil && (*requestedDueDay < 1 || *requestedDueDay > 31) {
		return NewValidationError("due day must be between 1 and 31")
	}
	original, off, final, err := Valuate(plan, discount)
	if err != nil {
		return err
	}
	e.StartDate = DateOf(e.StartDate)
	e.PlanID = plan.ID
	e.DiscountID = nil
	if discount != nil {
		id := discount.ID
		e.DiscountID = &id
	}
	e.OriginalPrice = original
	e.DiscountAmount = off
	e.FinalPrice = final
	e.EndDate = plan.EndDate(e.StartDate)

	e.DueDay = nil
	if plan.IsRecurring() {
		day := e.StartDate.Day()
		if requestedDueDay != nil {
			day = *requestedDueDay
		}
		e.DueDay = &day
	}
	return nil
}

// FirstDueDate is the due date of the charge created with the enrollment.
func (e *Enrollment) FirstDueDate(plan *Plan) time.Time {
	if e.DueDay != nil {
		return NextDueDate(e.StartDate, *e.DueDay, plan.Periodicity)
	}
	return AddDays(e.StartDate, FirstChargeGraceDays)
}

// IsActive reports whether the enrollment is billable.
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive
}

// Inactivate suspends the enrollment with a mandatory reason.
func (e *Enrollment) Inactivate(reason string, now time.Time) error {
	if e.Status == EnrollmentInactive {
		return ErrEnrollmentInactive
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("an inactivation reason is required")
	}
	e.Status = EnrollmentInactive
	e.InactivationReason = reason
	e.UpdatedAt = now
	return nil
}

// Reactivate resumes an inactive enrollment.
func (e *Enrollment) Reactivate(now time.Time) error {
	if e.Status == EnrollmentActive {
		return ErrEnrollmentActive
	}
	e.Status = EnrollmentActive
	e.InactivationReason = ""
	e.UpdatedAt = now
	return nil
}

// RecurringNote annotates charges produced by the billing generator.
func (e *Enrollment) RecurringNote(periodKey string) string {
	return fmt.Sprintf("Automatic charge - Enrollment: %s - Ref: %s", e.Code, periodKey)
}

// FirstChargeNote annotates the charge created with the enrollment.
func (e *Enrollment) FirstChargeNote() string {
	return fmt.Sprintf("Enrollment %s - first charge", e.Code)
}

// EnrollmentPatch carries optional enrollment updates.
type EnrollmentPatch struct {
	PlanID        *string
	DiscountID    *string
	ClearDiscount bool
	ClassID       *string
	ClearClass    bool
	StartDate     *time.Time
	DueDay        *int
	PaymentMethod *PaymentMethod
	Installments  *int
	Notes         *string
}

// Reprices reports whether the patch changes any valuation input.
func (p EnrollmentPatch) Reprices() bool {
	return p.PlanID != nil || p.DiscountID != nil || p.ClearDiscount || p.StartDate != nil || p.DueDay != nil
}

// EnrollmentFilter narrows enrollment listings.
type EnrollmentFilter struct {
	Status    *EnrollmentStatus
	StudentID *string
	PlanID    *string
}

// BillableEnrollment is an enrollment joined with its plan, as seen by the billing generator.
type BillableEnrollment struct {
	Enrollment *Enrollment
	Plan       *Plan
}
