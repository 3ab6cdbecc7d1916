package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind distinguishes receivables from payables.
type AccountKind string

const (
	KindReceivable AccountKind = "RECEIVABLE"
	KindPayable    AccountKind = "PAYABLE"
)

// IsValid reports whether k is a known kind.
func (k AccountKind) IsValid() bool {
	return k == KindReceivable || k == KindPayable
}

// Series returns the numbering series of the kind.
func (k AccountKind) Series() Series {
	if k == KindPayable {
		return SeriesPayable
	}
	return SeriesReceivable
}

// AccountStatus is the lifecycle state of an obligation.
type AccountStatus string

const (
	StatusPending   AccountStatus = "PENDING"
	StatusPaid      AccountStatus = "PAID"
	StatusOverdue   AccountStatus = "OVERDUE"
	StatusCancelled AccountStatus = "CANCELLED"
)

// IsTerminal reports whether no further payment or edit is accepted.
func (s AccountStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Payable categories.
const (
	CategorySupplier    = "SUPPLIER"
	CategorySalary      = "SALARY"
	CategoryRent        = "RENT"
	CategoryElectricity = "ELECTRICITY"
	CategoryWater       = "WATER"
	CategoryPhone       = "PHONE"
	CategoryInternet    = "INTERNET"
	CategoryEquipment   = "EQUIPMENT"
	CategoryMaintenance = "MAINTENANCE"
	CategoryTuition     = "TUITION"
)

var payableCategories = map[string]bool{
	CategorySupplier:    true,
	CategorySalary:      true,
	CategoryRent:        true,
	CategoryElectricity: true,
	CategoryWater:       true,
	CategoryPhone:       true,
	CategoryInternet:    true,
	CategoryEquipment:   true,
	CategoryMaintenance: true,
	CategoryOther:       true,
}

// BillingAccount is a single receivable or payable obligation.
type BillingAccount struct {
	ID                string
	TenantID          string
	Kind              AccountKind
	Number            string
	Category          string
	Description       string
	StudentID         *string
	PlanID            *string
	DiscountID        *string
	EnrollmentID      *string
	PeriodKey         *string
	EmployeeID        *string
	SupplierID        *string
	SupplierName      string
	SupplierDocument  string
	Document          string
	OriginalAmount    decimal.Decimal
	DiscountAmount    decimal.Decimal
	InterestAmount    decimal.Decimal
	PenaltyAmount     decimal.Decimal
	FinalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	RemainingAmount   decimal.Decimal
	DueDate           time.Time
	PaidAt            *time.Time
	PaymentMethod     PaymentMethod
	Status            AccountStatus
	Installment       *int
	TotalInstallments *int
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks required fields for the account kind.
func (a *BillingAccount) Validate() error {
	if !a.Kind.IsValid() {
		return NewValidationError("invalid account kind %q", a.Kind)
	}
	if a.DueDate.IsZero() {
		return NewValidationError("due date is required")
	}
	if err := ValidatePositive("original amount", a.OriginalAmount); err != nil {
		return err
	}
	if err := ValidateNonNegative("discount amount", a.DiscountAmount); err != nil {
		return err
	}
	a.Description = strings.TrimSpace(a.Description)

	switch a.Kind {
	case KindReceivable:
		if a.StudentID == nil || *a.StudentID == "" {
			return NewValidationError("student is required for a receivable")
		}
		if a.Category == "" {
			a.Category = CategoryTuition
		}
	case KindPayable:
		if a.Description == "" {
			return NewValidationError("description is required for a payable")
		}
		if a.Category == "" {
			a.Category = CategoryOther
		}
		if !payableCategories[a.Category] {
			return NewValidationError("invalid payable category %q", a.Category)
		}
		if a.Category == CategorySalary && (a.EmployeeID == nil || *a.EmployeeID == "") {
			return NewValidationError("an employee is required for a salary payable")
		}
		if a.Category == CategorySupplier && (a.SupplierID == nil || *a.SupplierID == "") && strings.TrimSpace(a.SupplierName) == "" {
			return NewValidationError("a supplier is required for a supplier payable")
		}
	}
	return nil
}

// Init computes the derived amounts of a freshly created obligation.
func (a *BillingAccount) Init(now time.Time) error {
	a.OriginalAmount = RoundMoney(a.OriginalAmount)
	a.DiscountAmount = RoundMoney(a.DiscountAmount)
	if a.DiscountAmount.GreaterThan(a.OriginalAmount) {
		return ErrDiscountExceedsAmount
	}
	a.DueDate = DateOf(a.DueDate)
	a.InterestAmount = decimal.Zero
	a.PenaltyAmount = decimal.Zero
	a.FinalAmount = a.OriginalAmount.Sub(a.DiscountAmount)
	a.PaidAmount = decimal.Zero
	a.RemainingAmount = a.FinalAmount
	a.Status = StatusPending
	if a.FinalAmount.IsZero() {
		// nothing is owed
		a.Status = StatusPaid
		a.PaidAt = &now
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// CheckOpen rejects operations on terminal obligations.
func (a *BillingAccount) CheckOpen() error {
	switch a.Status {
	case StatusPaid:
		return ErrAccountPaid
	case StatusCancelled:
		return ErrAccountCancelled
	}
	return nil
}

// HasPayments reports whether any amount has been paid.
func (a *BillingAccount) HasPayments() bool {
	return a.Status == StatusPaid || a.PaidAmount.IsPositive()
}

// Payment is one payment applied to an obligation.
type Payment struct {
	Amount   decimal.Decimal
	Method   PaymentMethod
	PaidAt   time.Time
	Interest decimal.Decimal
	Penalty  decimal.Decimal
}

// Validate checks amounts and method.
func (p *Payment) Validate() error {
	if err := ValidatePositive("amount paid", p.Amount); err != nil {
		return err
	}
	if err := ValidateNonNegative("interest", p.Interest); err != nil {
		return err
	}
	if err := ValidateNonNegative("penalty", p.Penalty); err != nil {
		return err
	}
	return ValidatePaymentMethod(p.Method)
}

// ApplyPayment adds interest and penalty to the final amount and records the payment.
// The obligation becomes PAID once nothing remains; otherwise it keeps its status.
func (a *BillingAccount) ApplyPayment(p Payment, now time.Time) error {
	if err := a.CheckOpen(); err != nil {
		return err
	}
	amount := RoundMoney(p.Amount)
	interest := RoundMoney(p.Interest)
	penalty := RoundMoney(p.Penalty)

	newFinal := a.FinalAmount.Add(interest).Add(penalty)
	newPaid := a.PaidAmount.Add(amount)
	newRemaining := newFinal.Sub(newPaid)
	if newPaid.GreaterThan(newFinal) {
		return fmt.Errorf("%w: remaining %s, paid %s", ErrPaymentExceedsAmount, newFinal.Sub(a.PaidAmount).StringFixed(2), amount.StringFixed(2))
	}

	a.InterestAmount = a.InterestAmount.Add(interest)
	a.PenaltyAmount = a.PenaltyAmount.Add(penalty)
	a.FinalAmount = newFinal
	a.PaidAmount = newPaid
	a.RemainingAmount = newRemaining
	a.PaymentMethod = p.Method
	if !newRemaining.IsPositive() {
		paidAt := p.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}
		a.Status = StatusPaid
		a.PaidAt = &paidAt
	}
	a.UpdatedAt = now
	return nil
}

// Cancel terminates the obligation, appending the reason to the notes.
func (a *BillingAccount) Cancel(reason string, now time.Time) error {
	if err := a.CheckOpen(); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("a cancellation reason is required")
	}
	a.Status = StatusCancelled
	a.Notes = joinNotes(a.Notes, "CANCELLED: "+reason)
	a.UpdatedAt = now
	return nil
}

// MarkOverdue moves a PENDING obligation past its due date to OVERDUE.
func (a *BillingAccount) MarkOverdue(today time.Time) bool {
	if a.Status != StatusPending || !a.DueDate.Before(DateOf(today)) {
		return false
	}
	a.Status = StatusOverdue
	return true
}

// AccountPatch carries optional field updates.
type AccountPatch struct {
	Description      *string
	Category         *string
	OriginalAmount   *decimal.Decimal
	DiscountAmount   *decimal.Decimal
	DueDate          *time.Time
	SupplierName     *string
	SupplierDocument *string
	Document         *string
	Notes            *string
}

// ApplyPatch updates an open obligation, keeping remaining = final - paid.
// On error the obligation is left untouched.
func (a *BillingAccount) ApplyPatch(p AccountPatch, today, now time.Time) error {
	if err := a.CheckOpen(); err != nil {
		return err
	}
	next := *a
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.SupplierName != nil {
		next.SupplierName = *p.SupplierName
	}
	if p.SupplierDocument != nil {
		next.SupplierDocument = *p.SupplierDocument
	}
	if p.Document != nil {
		next.Document = *p.Document
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.OriginalAmount != nil {
		next.OriginalAmount = RoundMoney(*p.OriginalAmount)
	}
	if p.DiscountAmount != nil {
		next.DiscountAmount = RoundMoney(*p.DiscountAmount)
	}
	if p.DueDate != nil {
		next.DueDate = DateOf(*p.DueDate)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if next.DiscountAmount.GreaterThan(next.OriginalAmount) {
		return ErrDiscountExceedsAmount
	}

	final := next.OriginalAmount.Sub(next.DiscountAmount).Add(next.InterestAmount).Add(next.PenaltyAmount)
	if final.LessThan(next.PaidAmount) {
		return NewValidationError("final amount cannot be lower than the amount already paid")
	}
	next.FinalAmount = final
	next.RemainingAmount = final.Sub(next.PaidAmount)

	switch {
	case !next.RemainingAmount.IsPositive():
		next.Status = StatusPaid
		next.PaidAt = &now
	case next.DueDate.Before(DateOf(today)):
		if next.Status == StatusPending && p.DueDate == nil {
			break
		}
		next.Status = StatusOverdue
	default:
		next.Status = StatusPending
	}
	next.UpdatedAt = now
	*a = next
	return nil
}

// MovementDirection is the cash direction of a payment on this obligation.
func (a *BillingAccount) MovementDirection() Direction {
	if a.Kind == KindPayable {
		return DirectionOut
	}
	return DirectionIn
}

// PaymentDescription is the register description of a payment on this obligation.
func (a *BillingAccount) PaymentDescription() string {
	if a.Kind == KindPayable && a.Description != "" {
		return fmt.Sprintf("Payment %s - %s", a.Number, a.Description)
	}
	return "Payment " + a.Number
}

// AccountFilter narrows obligation listings.
type AccountFilter struct {
	Kind         AccountKind
	Status       *AccountStatus
	StudentID    *string
	EnrollmentID *string
	Category     *string
	DueFrom      *time.Time
	DueTo        *time.Time
}

// CategoryTotal aggregates obligations of one category.
type CategoryTotal struct {
	Category  string
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Remaining decimal.Decimal
	Count     int
}

// CategoryTotals is the per-category report with a grand total.
type CategoryTotals struct {
	Categories []CategoryTotal
	Total      decimal.Decimal
	Paid       decimal.Decimal
	Remaining  decimal.Decimal
	Count      int
}
