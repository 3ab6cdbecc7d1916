package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
)

var hundred = decimal.NewFromInt(100)

// Discount reduces the price of an enrollment.
type Discount struct {
	ID        string
	TenantID  string
	Name      string
	Type      DiscountType
	Value     decimal.Decimal
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the discount definition.
func (d *Discount) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return NewValidationError("discount name is required")
	}
	if d.Type != DiscountPercentage && d.Type != DiscountFixed {
		return NewValidationError("invalid discount type %q", d.Type)
	}
	if err := ValidateNonNegative("discount value", d.Value); err != nil {
		return err
	}
	if d.Type == DiscountPercentage && d.Value.GreaterThan(hundred) {
		return NewValidationError("percentage discount cannot exceed 100")
	}
	return nil
}

// AmountFor returns the discount applicable to base. Inactive discounts and discounts
// larger than the base are rejected.
func (d *Discount) AmountFor(base decimal.Decimal) (decimal.Decimal, error) {
	if !d.Active {
		return decimal.Zero, ErrDiscountInactive
	}
	var amount decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		amount = RoundMoney(base.Mul(d.Value).Div(hundred))
	default:
		amount = RoundMoney(d.Value)
	}
	if amount.GreaterThan(base) {
		return decimal.Zero, ErrDiscountExceedsAmount
	}
	return amount, nil
}
