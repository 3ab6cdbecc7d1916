package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newReceivable(t *testing.T, original, discount string) *BillingAccount {
	t.Helper()
	a := &BillingAccount{
		ID:             "acc-1",
		Kind:           KindReceivable,
		Number:         "CR00001",
		StudentID:      strPtr("student-1"),
		OriginalAmount: dec(original),
		DiscountAmount: dec(discount),
		DueDate:        date(2025, 3, 15),
	}
	require.NoError(t, a.Validate())
	require.NoError(t, a.Init(testNow))
	return a
}

func TestBillingAccount_Init(t *testing.T) {
	a := newReceivable(t, "200.00", "50.00")

	assert.True(t, a.FinalAmount.Equal(dec("150")))
	assert.True(t, a.RemainingAmount.Equal(dec("150")))
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, CategoryTuition, a.Category)

	over := &BillingAccount{Kind: KindReceivable, OriginalAmount: dec("10"), DiscountAmount: dec("11"), DueDate: testNow}
	assert.ErrorIs(t, over.Init(testNow), ErrDiscountExceedsAmount)

	free := newReceivable(t, "80", "80")
	assert.Equal(t, StatusPaid, free.Status)
	assert.NotNil(t, free.PaidAt)
}

func TestBillingAccount_Validate(t *testing.T) {
	base := func() *BillingAccount {
		return &BillingAccount{Kind: KindPayable, Description: "rent", Category: CategoryRent, OriginalAmount: dec("1000"), DueDate: testNow}
	}

	tests := []struct {
		name   string
		mutate func(a *BillingAccount)
		ok     bool
	}{
		{"valid payable", func(a *BillingAccount) {}, true},
		{"missing due date", func(a *BillingAccount) { a.DueDate = time.Time{} }, false},
		{"zero amount", func(a *BillingAccount) { a.OriginalAmount = decimal.Zero }, false},
		{"missing description", func(a *BillingAccount) { a.Description = " " }, false},
		{"unknown category", func(a *BillingAccount) { a.Category = "TAXES" }, false},
		{"salary without employee", func(a *BillingAccount) { a.Category = CategorySalary }, false},
		{"salary with employee", func(a *BillingAccount) { a.Category = CategorySalary; a.EmployeeID = strPtr("emp-1") }, true},
		{"supplier without supplier", func(a *BillingAccount) { a.Category = CategorySupplier }, false},
		{"supplier by name", func(a *BillingAccount) { a.Category = CategorySupplier; a.SupplierName = "ACME" }, true},
		{"receivable without student", func(a *BillingAccount) { a.Kind = KindReceivable }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			tt.mutate(a)
			err := a.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestBillingAccount_ApplyPayment(t *testing.T) {
	t.Run("full payment", func(t *testing.T) {
		a := newReceivable(t, "200.00", "50.00")
		err := a.ApplyPayment(Payment{Amount: dec("150"), Method: PaymentCash}, testNow)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, a.Status)
		assert.True(t, a.RemainingAmount.IsZero())
		require.NotNil(t, a.PaidAt)
		assert.Equal(t, PaymentCash, a.PaymentMethod)
	})

	t.Run("partial payment keeps status", func(t *testing.T) {
		a := newReceivable(t, "100", "0")
		a.Status = StatusOverdue
		require.NoError(t, a.ApplyPayment(Payment{Amount: dec("40"), Method: PaymentPix}, testNow))
		assert.Equal(t, StatusOverdue, a.Status)
		assert.Nil(t, a.PaidAt)
		assert.True(t, a.RemainingAmount.Equal(dec("60")))
		assert.True(t, a.RemainingAmount.Equal(a.FinalAmount.Sub(a.PaidAmount)))
	})

	t.Run("interest and penalty raise the final amount", func(t *testing.T) {
		a := newReceivable(t, "100", "0")
		p := Payment{Amount: dec("112"), Method: PaymentBoleto, Interest: dec("10"), Penalty: dec("2"), PaidAt: date(2025, 3, 20)}
		require.NoError(t, a.ApplyPayment(p, testNow))
		assert.True(t, a.FinalAmount.Equal(dec("112")))
		assert.True(t, a.InterestAmount.Equal(dec("10")))
		assert.True(t, a.PenaltyAmount.Equal(dec("2")))
		assert.Equal(t, StatusPaid, a.Status)
		assert.Equal(t, date(2025, 3, 20), *a.PaidAt)
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		a := newReceivable(t, "200.00", "50.00")
		err := a.ApplyPayment(Payment{Amount: dec("151"), Method: PaymentCash}, testNow)
		assert.ErrorIs(t, err, ErrValidation)
		assert.True(t, a.RemainingAmount.Equal(dec("150")))
		assert.True(t, a.PaidAmount.IsZero())
		assert.Equal(t, StatusPending, a.Status)
	})

	t.Run("terminal states rejected", func(t *testing.T) {
		paid := newReceivable(t, "10", "0")
		require.NoError(t, paid.ApplyPayment(Payment{Amount: dec("10"), Method: PaymentCash}, testNow))
		assert.ErrorIs(t, paid.ApplyPayment(Payment{Amount: dec("1"), Method: PaymentCash}, testNow), ErrAccountPaid)

		cancelled := newReceivable(t, "10", "0")
		require.NoError(t, cancelled.Cancel("duplicate", testNow))
		err := cancelled.ApplyPayment(Payment{Amount: dec("1"), Method: PaymentCash}, testNow)
		assert.True(t, errors.Is(err, ErrInvalidState))
	})
}

func TestBillingAccount_Cancel(t *testing.T) {
	a := newReceivable(t, "100", "0")
	a.Notes = "created at front desk"

	assert.ErrorIs(t, a.Cancel("   ", testNow), ErrValidation)
	require.NoError(t, a.Cancel("duplicate", testNow))
	assert.Equal(t, StatusCancelled, a.Status)
	assert.True(t, strings.HasSuffix(a.Notes, "\nCANCELLED: duplicate"))
	assert.ErrorIs(t, a.Cancel("again", testNow), ErrAccountCancelled)
}

func TestBillingAccount_MarkOverdue(t *testing.T) {
	a := newReceivable(t, "100", "0")

	assert.False(t, a.MarkOverdue(date(2025, 3, 15)), "due today is not overdue")
	assert.True(t, a.MarkOverdue(date(2025, 3, 16)))
	assert.Equal(t, StatusOverdue, a.Status)
	assert.False(t, a.MarkOverdue(date(2025, 3, 17)), "second sweep must be a no-op")
}

func TestBillingAccount_ApplyPatch(t *testing.T) {
	today := date(2025, 3, 20)

	a := newReceivable(t, "100", "0")
	require.NoError(t, a.ApplyPayment(Payment{Amount: dec("30"), Method: PaymentCash}, testNow))

	newOriginal := dec("120")
	newDiscount := dec("10")
	require.NoError(t, a.ApplyPatch(AccountPatch{OriginalAmount: &newOriginal, DiscountAmount: &newDiscount}, today, testNow))
	assert.True(t, a.FinalAmount.Equal(dec("110")))
	assert.True(t, a.RemainingAmount.Equal(dec("80")))

	tooLow := dec("20")
	assert.ErrorIs(t, a.ApplyPatch(AccountPatch{OriginalAmount: &tooLow, DiscountAmount: &newDiscount}, today, testNow), ErrValidation)

	later := date(2025, 4, 1)
	a.Status = StatusOverdue
	require.NoError(t, a.ApplyPatch(AccountPatch{DueDate: &later}, today, testNow))
	assert.Equal(t, StatusPending, a.Status)

	require.NoError(t, a.Cancel("wrong student", testNow))
	assert.ErrorIs(t, a.ApplyPatch(AccountPatch{Notes: strPtr("x")}, today, testNow), ErrAccountCancelled)
}

func TestBillingAccount_PaymentDescription(t *testing.T) {
	r := &BillingAccount{Kind: KindReceivable, Number: "CR00007"}
	assert.Equal(t, "Payment CR00007", r.PaymentDescription())
	assert.Equal(t, DirectionIn, r.MovementDirection())

	p := &BillingAccount{Kind: KindPayable, Number: "CP00002", Description: "Electricity March"}
	assert.Equal(t, "Payment CP00002 - Electricity March", p.PaymentDescription())
	assert.Equal(t, DirectionOut, p.MovementDirection())
}
