package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterStatus is the state of a cash register session.
type RegisterStatus string

const (
	RegisterOpen   RegisterStatus = "OPEN"
	RegisterClosed RegisterStatus = "CLOSED"
)

// Direction of a movement.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Movement tags.
const (
	CategoryWithdrawal    = "WITHDRAWAL"
	CategoryReplenishment = "REPLENISHMENT"
	CategoryPayment       = "PAYMENT"
	CategoryOther         = "OTHER"
	MethodNotInformed     = "NOT_INFORMED"
)

// Movement is one inflow or outflow inside a register session.
type Movement struct {
	ID            string
	RegisterID    string
	Direction     Direction
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	Category      string
	ReceivableID  *string
	PayableID     *string
	CreatedBy     string
	CreatedAt     time.Time
}

// Validate checks direction, amount and description. Description is trimmed in place.
func (m *Movement) Validate() error {
	if m.Direction != DirectionIn && m.Direction != DirectionOut {
		return NewValidationError("direction must be IN or OUT")
	}
	if err := ValidatePositive("amount", m.Amount); err != nil {
		return err
	}
	m.Description = strings.TrimSpace(m.Description)
	if m.Description == "" {
		return NewValidationError("description is required")
	}
	m.Category = strings.TrimSpace(m.Category)
	m.PaymentMethod = strings.TrimSpace(m.PaymentMethod)
	return nil
}

// CashRegister is one open-to-close session of the cash drawer.
type CashRegister struct {
	ID           string
	TenantID     string
	Number       string
	Status       RegisterStatus
	OpeningFloat decimal.Decimal
	TotalIn      decimal.Decimal
	TotalOut     decimal.Decimal
	ClosingCount *decimal.Decimal
	Variance     *decimal.Decimal
	Notes        string
	OpenedBy     string
	ClosedBy     string
	OpenedAt     time.Time
	ClosedAt     *time.Time
	UpdatedAt    time.Time
	Movements    []Movement
}

// NewCashRegister validates the opening data and returns an OPEN session.
func NewCashRegister(id, tenantID, number string, openingFloat decimal.Decimal, openedBy, notes string, now time.Time) (*CashRegister, error) {
	if err := ValidateNonNegative("opening float", openingFloat); err != nil {
		return nil, err
	}
	openedBy = strings.TrimSpace(openedBy)
	if openedBy == "" {
		return nil, NewValidationError("opening user is required")
	}
	return &CashRegister{
		ID:           id,
		TenantID:     tenantID,
		Number:       number,
		Status:       RegisterOpen,
		OpeningFloat: RoundMoney(openingFloat),
		TotalIn:      decimal.Zero,
		TotalOut:     decimal.Zero,
		Notes:        strings.TrimSpace(notes),
		OpenedBy:     openedBy,
		OpenedAt:     now,
		UpdatedAt:    now,
	}, nil
}

// IsOpen reports whether movements may still be appended.
func (r *CashRegister) IsOpen() bool {
	return r.Status == RegisterOpen
}

// AvailableBalance is opening + totalIn - totalOut.
func (r *CashRegister) AvailableBalance() decimal.Decimal {
	return r.OpeningFloat.Add(r.TotalIn).Sub(r.TotalOut)
}

// CheckWithdrawal rejects an outflow larger than the drawer holds.
func (r *CashRegister) CheckWithdrawal(amount decimal.Decimal) error {
	available := r.AvailableBalance()
	if amount.GreaterThan(available) {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, available.StringFixed(2), amount.StringFixed(2))
	}
	if available.Sub(amount).IsNegative() {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyMovement validates m and folds it into the running totals.
// Totals are derived from the current totals, never from the movement history.
func (r *CashRegister) ApplyMovement(m *Movement, now time.Time) error {
	if !r.IsOpen() {
		return ErrRegisterClosed
	}
	if err := m.Validate(); err != nil {
		return err
	}
	m.Amount = RoundMoney(m.Amount)
	switch m.Direction {
	case DirectionIn:
		r.TotalIn = r.TotalIn.Add(m.Amount)
	case DirectionOut:
		if err := r.CheckWithdrawal(m.Amount); err != nil {
			return err
		}
		r.TotalOut = r.TotalOut.Add(m.Amount)
	}
	m.RegisterID = r.ID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	r.UpdatedAt = now
	r.Movements = append(r.Movements, *m)
	return nil
}

// RevertMovement reverses the effect of m on the running totals.
func (r *CashRegister) RevertMovement(m *Movement, now time.Time) error {
	if !r.IsOpen() {
		return ErrRegisterClosed
	}
	switch m.Direction {
	case DirectionIn:
		if err := r.CheckWithdrawal(m.Amount); err != nil {
			return err
		}
		r.TotalIn = r.TotalIn.Sub(m.Amount)
	case DirectionOut:
		r.TotalOut = r.TotalOut.Sub(m.Amount)
	}
	for i := range r.Movements {
		if r.Movements[i].ID == m.ID {
			r.Movements = append(r.Movements[:i], r.Movements[i+1:]...)
			break
		}
	}
	r.UpdatedAt = now
	return nil
}

// Close records the counted cash and the variance against the expected balance.
func (r *CashRegister) Close(closingCount *decimal.Decimal, closedBy, notes string, now time.Time) error {
	if !r.IsOpen() {
		return fmt.Errorf("%w: cash register is already closed", ErrInvalidState)
	}
	if closingCount == nil {
		return NewValidationError("closing count is required")
	}
	if err := ValidateNonNegative("closing count", *closingCount); err != nil {
		return err
	}
	closedBy = strings.TrimSpace(closedBy)
	if closedBy == "" {
		return NewValidationError("closing user is required")
	}

	count := RoundMoney(*closingCount)
	variance := count.Sub(r.AvailableBalance())

	text := r.Notes
	if n := strings.TrimSpace(notes); n != "" {
		text = joinNotes(text, n)
	}
	if variance.Abs().GreaterThan(VarianceTolerance) {
		label := "SURPLUS"
		if variance.IsNegative() {
			label = "SHORTAGE"
		}
		text = joinNotes(text, fmt.Sprintf("%s: %s", label, FormatBRL(variance)))
	}

	r.Status = RegisterClosed
	r.ClosingCount = &count
	r.Variance = &variance
	r.ClosedBy = closedBy
	r.ClosedAt = &now
	r.Notes = text
	r.UpdatedAt = now
	return nil
}

// FinalBalance is the counted cash of a closed session.
func (r *CashRegister) FinalBalance() *decimal.Decimal {
	return r.ClosingCount
}

func joinNotes(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}

// RegisterFilter narrows register listings.
type RegisterFilter struct {
	Status *RegisterStatus
	From   *time.Time
	To     *time.Time
}
