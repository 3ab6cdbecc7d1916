package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
	"github.com/iho/gymledger/internal/usecase/mocks"
)

func TestBillingUseCase_CreateReceivable(t *testing.T) {
	e := newEnv(t)

	a := e.receivable("200", "50")
	if a.Number != "CR00001" {
		t.Fatalf("expected number CR00001, got %s", a.Number)
	}
	if a.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", a.Status)
	}
	if !a.FinalAmount.Equal(dec("150")) || !a.RemainingAmount.Equal(dec("150")) {
		t.Fatalf("expected final and remaining 150, got %s / %s", a.FinalAmount, a.RemainingAmount)
	}
	assertAmountsConsistent(t, a)

	events, _ := e.outbox.GetUnpublished(e.ctx, 10)
	if len(events) != 1 || events[0].EventType != domain.EventTypeAccountCreated {
		t.Fatalf("expected one account.created event, got %d", len(events))
	}
}

func TestBillingUseCase_CreateValidation(t *testing.T) {
	e := newEnv(t)
	st := e.student("Carla")

	tests := []struct {
		name  string
		input usecase.CreateAccountInput
		want  error
	}{
		{
			name: "discount above original",
			input: usecase.CreateAccountInput{
				Kind: domain.KindReceivable, StudentID: &st.ID,
				OriginalAmount: decPtr("100"), DiscountAmount: dec("100.01"), DueDate: date(2024, 3, 15),
			},
			want: domain.ErrDiscountExceedsAmount,
		},
		{
			name: "receivable without student",
			input: usecase.CreateAccountInput{
				Kind: domain.KindReceivable, OriginalAmount: decPtr("100"), DueDate: date(2024, 3, 15),
			},
			want: domain.ErrValidation,
		},
		{
			name: "unknown student",
			input: usecase.CreateAccountInput{
				Kind: domain.KindReceivable, StudentID: strPtr("ghost"),
				OriginalAmount: decPtr("100"), DueDate: date(2024, 3, 15),
			},
			want: domain.ErrNotFound,
		},
		{
			name: "salary without employee",
			input: usecase.CreateAccountInput{
				Kind: domain.KindPayable, Category: domain.CategorySalary, Description: "March salary",
				OriginalAmount: decPtr("1500"), DueDate: date(2024, 3, 30),
			},
			want: domain.ErrValidation,
		},
		{
			name: "zero amount",
			input: usecase.CreateAccountInput{
				Kind: domain.KindPayable, Category: domain.CategoryRent, Description: "Rent",
				OriginalAmount: decPtr("0"), DueDate: date(2024, 3, 30),
			},
			want: domain.ErrValidation,
		},
		{
			name: "missing due date",
			input: usecase.CreateAccountInput{
				Kind: domain.KindPayable, Category: domain.CategoryRent, Description: "Rent",
				OriginalAmount: decPtr("900"),
			},
			want: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.billing.Create(e.ctx, tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBillingUseCase_CreateFullyDiscounted(t *testing.T) {
	e := newEnv(t)

	a := e.receivable("80", "80")
	if a.Status != domain.StatusPaid {
		t.Fatalf("expected PAID for a zero final amount, got %s", a.Status)
	}
	if a.PaidAt == nil {
		t.Fatal("expected paid_at to be set")
	}
}

func TestBillingUseCase_CreateFromPlanPrice(t *testing.T) {
	e := newEnv(t)
	st := e.student("Davi")
	plan := e.plan(usecase.CreatePlanInput{Price: dec("120")})
	discount, err := e.catalog.CreateDiscount(e.ctx, usecase.CreateDiscountInput{Name: "Family", Type: domain.DiscountPercentage, Value: dec("25")})
	if err != nil {
		t.Fatalf("create discount: %v", err)
	}

	a, err := e.billing.Create(e.ctx, usecase.CreateAccountInput{
		Kind:       domain.KindReceivable,
		StudentID:  &st.ID,
		PlanID:     &plan.ID,
		DiscountID: &discount.ID,
		DueDate:    date(2024, 4, 5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.OriginalAmount.Equal(dec("120")) || !a.DiscountAmount.Equal(dec("30")) || !a.FinalAmount.Equal(dec("90")) {
		t.Fatalf("unexpected amounts %s - %s = %s", a.OriginalAmount, a.DiscountAmount, a.FinalAmount)
	}
	if a.Category != domain.CategoryTuition {
		t.Fatalf("expected TUITION default category, got %s", a.Category)
	}
}

func TestBillingUseCase_CreateFromPricingSnapshot(t *testing.T) {
	e := newEnv(t)
	st := e.student("Davi")
	plan := e.plan(usecase.CreatePlanInput{Price: dec("120")})
	discount, err := e.catalog.CreateDiscount(e.ctx, usecase.CreateDiscountInput{Name: "Family", Type: domain.DiscountPercentage, Value: dec("25")})
	if err != nil {
		t.Fatalf("create discount: %v", err)
	}
	if _, err := e.catalog.SetDiscountActive(e.ctx, discount.ID, false); err != nil {
		t.Fatalf("inactivate discount: %v", err)
	}

	input := usecase.CreateAccountInput{
		Kind:           domain.KindReceivable,
		StudentID:      &st.ID,
		PlanID:         &plan.ID,
		DiscountID:     &discount.ID,
		OriginalAmount: decPtr("120"),
		DueDate:        date(2024, 4, 5),
	}
	if _, err := e.billing.Create(e.ctx, input); !errors.Is(err, domain.ErrDiscountInactive) {
		t.Fatalf("expected the inactive discount to be read, got %v", err)
	}

	input.PricingSnapshot = true
	a, err := e.billing.Create(e.ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.DiscountAmount.IsZero() || !a.FinalAmount.Equal(dec("120")) {
		t.Fatalf("expected the zero snapshot to be kept, got %s - %s", a.DiscountAmount, a.FinalAmount)
	}
	if a.DiscountID == nil || *a.DiscountID != discount.ID {
		t.Fatalf("expected the discount reference to be kept, got %v", a.DiscountID)
	}
}

func TestBillingUseCase_RegisterPaymentSettles(t *testing.T) {
	e := newEnv(t)
	reg := e.openRegister("0")
	a := e.receivable("200", "50")

	res, err := e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("150"), Method: domain.PaymentCash})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RegisterID != reg.ID {
		t.Fatalf("expected payment in register %s, got %s", reg.ID, res.RegisterID)
	}

	got := e.account(a.ID)
	if got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
	if !got.RemainingAmount.IsZero() || got.PaidAt == nil {
		t.Fatalf("expected nothing remaining and paid_at set, got %s / %v", got.RemainingAmount, got.PaidAt)
	}
	assertAmountsConsistent(t, got)

	r := e.register(reg.ID)
	if len(r.Movements) != 1 {
		t.Fatalf("expected one movement, got %d", len(r.Movements))
	}
	m := r.Movements[0]
	if m.Direction != domain.DirectionIn || !m.Amount.Equal(dec("150")) {
		t.Fatalf("expected IN 150, got %s %s", m.Direction, m.Amount)
	}
	if m.ReceivableID == nil || *m.ReceivableID != a.ID {
		t.Fatalf("expected movement to reference %s, got %v", a.ID, m.ReceivableID)
	}
	if m.Description != "Payment "+a.Number {
		t.Fatalf("unexpected description %q", m.Description)
	}
	if !r.TotalIn.Equal(dec("150")) {
		t.Fatalf("expected total in 150, got %s", r.TotalIn)
	}
}

func TestBillingUseCase_RegisterPaymentPartial(t *testing.T) {
	e := newEnv(t)
	e.openRegister("0")
	a := e.receivable("100", "0")

	res, err := e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("40"), Method: domain.PaymentPix})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Account.Status != domain.StatusPending {
		t.Fatalf("expected PENDING after a partial payment, got %s", res.Account.Status)
	}
	if !res.Account.RemainingAmount.Equal(dec("60")) {
		t.Fatalf("expected remaining 60, got %s", res.Account.RemainingAmount)
	}

	// interest and penalty raise the final amount before the payment applies
	res, err = e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{
		Amount: dec("65"), Method: domain.PaymentPix, Interest: dec("2"), Penalty: dec("3"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Account.Status != domain.StatusPaid || !res.Account.FinalAmount.Equal(dec("105")) {
		t.Fatalf("expected PAID with final 105, got %s / %s", res.Account.Status, res.Account.FinalAmount)
	}
	assertAmountsConsistent(t, res.Account)
}

func TestBillingUseCase_RegisterPaymentOverpay(t *testing.T) {
	e := newEnv(t)
	reg := e.openRegister("0")
	a := e.receivable("200", "50")

	_, err := e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("151"), Method: domain.PaymentCash})
	if !errors.Is(err, domain.ErrPaymentExceedsAmount) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrPaymentExceedsAmount, got %v", err)
	}

	got := e.account(a.ID)
	if got.Status != domain.StatusPending || !got.PaidAmount.IsZero() {
		t.Fatalf("expected account unchanged, got %s paid %s", got.Status, got.PaidAmount)
	}
	if n := len(e.register(reg.ID).Movements); n != 0 {
		t.Fatalf("expected no movement, got %d", n)
	}
}

func TestBillingUseCase_RegisterPaymentRejectsSubCent(t *testing.T) {
	e := newEnv(t)
	reg := e.openRegister("0")
	a := e.receivable("150", "0")

	_, err := e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("0.004"), Method: domain.PaymentCash})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got := e.account(a.ID)
	if !got.PaidAmount.IsZero() || !got.RemainingAmount.Equal(dec("150")) {
		t.Fatalf("expected account unchanged, got paid %s remaining %s", got.PaidAmount, got.RemainingAmount)
	}
	if n := len(e.register(reg.ID).Movements); n != 0 {
		t.Fatalf("expected no movement, got %d", n)
	}
}

func TestBillingUseCase_RegisterPaymentValidation(t *testing.T) {
	e := newEnv(t)
	e.openRegister("0")
	a := e.receivable("100", "0")

	tests := []struct {
		name  string
		input usecase.PaymentInput
	}{
		{"zero amount", usecase.PaymentInput{Amount: dec("0"), Method: domain.PaymentCash}},
		{"negative interest", usecase.PaymentInput{Amount: dec("10"), Method: domain.PaymentCash, Interest: dec("-1")}},
		{"unknown method", usecase.PaymentInput{Amount: dec("10"), Method: domain.PaymentMethod("BARTER")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.billing.RegisterPayment(e.ctx, a.ID, tt.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBillingUseCase_RegisterPaymentNoOpenRegister(t *testing.T) {
	e := newEnv(t)
	a := e.receivable("100", "0")

	_, err := e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("10"), Method: domain.PaymentCash})
	if !errors.Is(err, domain.ErrNoOpenRegister) || !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected ErrNoOpenRegister, got %v", err)
	}
	if got := e.account(a.ID); !got.PaidAmount.IsZero() {
		t.Fatalf("expected nothing paid, got %s", got.PaidAmount)
	}
}

func TestBillingUseCase_RegisterPaymentAtomic(t *testing.T) {
	diskFull := errors.New("disk full")
	e := newEnv(t, withRegisterRepo(func(r usecase.CashRegisterRepository) usecase.CashRegisterRepository {
		return failingRegisterRepo{CashRegisterRepository: r, err: diskFull}
	}))
	reg := e.openRegister("10")
	a := e.receivable("100", "0")

	_, err := e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("100"), Method: domain.PaymentCash})
	if !errors.Is(err, diskFull) {
		t.Fatalf("expected movement failure, got %v", err)
	}

	got := e.account(a.ID)
	if got.Status != domain.StatusPending || !got.RemainingAmount.Equal(dec("100")) {
		t.Fatalf("expected account rolled back, got %s remaining %s", got.Status, got.RemainingAmount)
	}
	r := e.register(reg.ID)
	if len(r.Movements) != 0 || !r.TotalIn.IsZero() {
		t.Fatalf("expected register untouched, got %d movements, in %s", len(r.Movements), r.TotalIn)
	}
}

func TestBillingUseCase_RegisterPaymentUsesRetrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	retrier := mocks.NewMockRetrier(ctrl)
	retrier.EXPECT().
		Retry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, op func() error) error { return op() }).
		Times(1)

	e := newEnv(t, withRetrier(retrier))
	e.openRegister("0")
	a := e.receivable("50", "0")

	if _, err := e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("50"), Method: domain.PaymentDebitCard}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBillingUseCase_PayablePayment(t *testing.T) {
	e := newEnv(t)
	reg := e.openRegister("100")
	emp, err := e.catalog.CreateEmployee(e.ctx, usecase.CreateEmployeeInput{Name: "Edu", Role: "coach"})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}

	salary, err := e.billing.Create(e.ctx, usecase.CreateAccountInput{
		Kind:           domain.KindPayable,
		Category:       domain.CategorySalary,
		Description:    "Coach salary",
		EmployeeID:     &emp.ID,
		OriginalAmount: decPtr("300"),
		DueDate:        date(2024, 3, 30),
	})
	if err != nil {
		t.Fatalf("create payable: %v", err)
	}
	if salary.Number != "CP00001" {
		t.Fatalf("expected number CP00001, got %s", salary.Number)
	}

	_, err = e.billing.RegisterPayment(e.ctx, salary.ID, usecase.PaymentInput{Amount: dec("300"), Method: domain.PaymentCash})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	res, err := e.billing.RegisterPayment(e.ctx, salary.ID, usecase.PaymentInput{Amount: dec("80"), Method: domain.PaymentCash})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Movement.Direction != domain.DirectionOut || res.Movement.PayableID == nil {
		t.Fatalf("expected OUT movement referencing the payable, got %+v", res.Movement)
	}
	if res.Movement.Category != domain.CategorySalary {
		t.Fatalf("expected movement category SALARY, got %s", res.Movement.Category)
	}
	if !strings.Contains(res.Movement.Description, "Coach salary") {
		t.Fatalf("unexpected description %q", res.Movement.Description)
	}
	if bal := e.register(reg.ID).AvailableBalance(); !bal.Equal(dec("20")) {
		t.Fatalf("expected balance 20, got %s", bal)
	}
}

func TestBillingUseCase_Cancel(t *testing.T) {
	e := newEnv(t)
	e.openRegister("0")
	a := e.receivable("100", "0")

	if _, err := e.billing.Cancel(e.ctx, a.ID, "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for an empty reason, got %v", err)
	}

	cancelled, err := e.billing.Cancel(e.ctx, a.ID, "duplicate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	if !strings.Contains(cancelled.Notes, "duplicate") {
		t.Fatalf("expected reason in notes, got %q", cancelled.Notes)
	}

	_, err = e.billing.RegisterPayment(e.ctx, a.ID, usecase.PaymentInput{Amount: dec("10"), Method: domain.PaymentCash})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state paying a cancelled account, got %v", err)
	}
	if _, err := e.billing.Cancel(e.ctx, a.ID, "again"); !errors.Is(err, domain.ErrAccountCancelled) {
		t.Fatalf("expected ErrAccountCancelled, got %v", err)
	}
}

func TestBillingUseCase_SweepOverdue(t *testing.T) {
	e := newEnv(t)
	st := e.student("Fabi")
	for _, due := range []int{1, 9, 10, 20} {
		if _, err := e.billing.Create(e.ctx, usecase.CreateAccountInput{
			Kind: domain.KindReceivable, StudentID: &st.ID,
			OriginalAmount: decPtr("50"), DueDate: date(2024, 3, due),
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := e.billing.SweepOverdue(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 accounts overdue (due 1st and 9th), got %d", n)
	}
	n, err = e.billing.SweepOverdue(e.ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected an idempotent second sweep, got %d, %v", n, err)
	}

	if _, err := e.billing.SweepOverdue(context.Background()); !errors.Is(err, domain.ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant, got %v", err)
	}
}

func TestBillingUseCase_Update(t *testing.T) {
	e := newEnv(t)
	a := e.receivable("100", "0")

	due := date(2024, 3, 1)
	updated, err := e.billing.Update(e.ctx, a.ID, domain.AccountPatch{DueDate: &due, DiscountAmount: decPtr("10")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusOverdue {
		t.Fatalf("expected OVERDUE after moving the due date into the past, got %s", updated.Status)
	}
	if !updated.FinalAmount.Equal(dec("90")) {
		t.Fatalf("expected final 90, got %s", updated.FinalAmount)
	}
	assertAmountsConsistent(t, updated)

	future := date(2024, 4, 1)
	updated, err = e.billing.Update(e.ctx, a.ID, domain.AccountPatch{DueDate: &future})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusPending {
		t.Fatalf("expected PENDING after moving the due date forward, got %s", updated.Status)
	}

	paid := e.receivable("10", "10")
	if _, err := e.billing.Update(e.ctx, paid.ID, domain.AccountPatch{Notes: strPtr("x")}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state updating a paid account, got %v", err)
	}
}

func TestBillingUseCase_Delete(t *testing.T) {
	e := newEnv(t)
	e.openRegister("0")
	untouched := e.receivable("100", "0")
	partly := e.receivable("100", "0")

	if _, err := e.billing.RegisterPayment(e.ctx, partly.ID, usecase.PaymentInput{Amount: dec("1"), Method: domain.PaymentCash}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := e.billing.Delete(e.ctx, partly.ID); !errors.Is(err, domain.ErrAccountHasPayments) {
		t.Fatalf("expected ErrAccountHasPayments, got %v", err)
	}

	if err := e.billing.Delete(e.ctx, untouched.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.billing.Get(e.ctx, untouched.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestBillingUseCase_CreateInstallments(t *testing.T) {
	e := newEnv(t)

	accounts, err := e.billing.CreateInstallments(e.ctx, usecase.InstallmentInput{
		Base: usecase.CreateAccountInput{
			Category:     domain.CategoryEquipment,
			Description:  "Treadmill",
			SupplierName: "Fit Supply",
		},
		TotalInstallments: 3,
		TotalAmount:       dec("100"),
		FirstDueDate:      date(2024, 1, 31),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(accounts))
	}

	wantAmounts := []string{"33.33", "33.33", "33.34"}
	wantDue := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	for i, a := range accounts {
		if !a.FinalAmount.Equal(dec(wantAmounts[i])) {
			t.Fatalf("installment %d: expected %s, got %s", i+1, wantAmounts[i], a.FinalAmount)
		}
		if got := a.DueDate.Format("2006-01-02"); got != wantDue[i] {
			t.Fatalf("installment %d: expected due %s, got %s", i+1, wantDue[i], got)
		}
		if a.Kind != domain.KindPayable || *a.Installment != i+1 || *a.TotalInstallments != 3 {
			t.Fatalf("installment %d: unexpected numbering %+v", i+1, a)
		}
	}
	if accounts[2].Description != "Treadmill - Installment 3/3" {
		t.Fatalf("unexpected description %q", accounts[2].Description)
	}

	_, err = e.billing.CreateInstallments(e.ctx, usecase.InstallmentInput{
		Base: usecase.CreateAccountInput{Description: "x"}, TotalInstallments: 1, TotalAmount: dec("10"), FirstDueDate: date(2024, 1, 1),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for a single installment, got %v", err)
	}
}

func TestBillingUseCase_TotalsByCategory(t *testing.T) {
	e := newEnv(t)
	e.openRegister("1000")
	mk := func(category, amount string, day int) *domain.BillingAccount {
		a, err := e.billing.Create(e.ctx, usecase.CreateAccountInput{
			Kind: domain.KindPayable, Category: category, Description: category,
			SupplierName: "ACME", OriginalAmount: decPtr(amount), DueDate: date(2024, 3, day),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return a
	}
	rent := mk(domain.CategoryRent, "500", 5)
	mk(domain.CategoryWater, "80", 12)
	mk(domain.CategoryWater, "70", 28)
	cancelled := mk(domain.CategoryPhone, "99", 15)
	mk(domain.CategoryRent, "150", 20)

	if _, err := e.billing.RegisterPayment(e.ctx, rent.ID, usecase.PaymentInput{Amount: dec("200"), Method: domain.PaymentPix}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := e.billing.Cancel(e.ctx, cancelled.ID, "wrong bill"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	totals, err := e.billing.TotalsByCategory(e.ctx, domain.KindPayable, date(2024, 3, 1), date(2024, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(totals.Categories) != 2 {
		t.Fatalf("expected RENT and WATER, got %+v", totals.Categories)
	}
	if totals.Categories[0].Category != domain.CategoryRent || totals.Categories[1].Category != domain.CategoryWater {
		t.Fatalf("expected categories sorted, got %+v", totals.Categories)
	}
	if !totals.Total.Equal(dec("800")) || !totals.Paid.Equal(dec("200")) || !totals.Remaining.Equal(dec("600")) {
		t.Fatalf("unexpected totals %s / %s / %s", totals.Total, totals.Paid, totals.Remaining)
	}
	if totals.Count != 4 {
		t.Fatalf("expected 4 accounts, got %d", totals.Count)
	}

	if _, err := e.billing.TotalsByCategory(e.ctx, domain.KindPayable, date(2024, 4, 1), date(2024, 3, 1)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for an inverted range, got %v", err)
	}
}
