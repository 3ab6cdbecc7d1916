package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
)

const reconcileBatch = 500

// ReconciliationUseCase recomputes persisted running totals from their sources.
type ReconciliationUseCase struct {
	registerRepo CashRegisterRepository
	accountRepo  BillingAccountRepository
	clock        Clock
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(registerRepo CashRegisterRepository, accountRepo BillingAccountRepository, clock Clock) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		registerRepo: registerRepo,
		accountRepo:  accountRepo,
		clock:        clock,
	}
}

// RegisterReconciliation compares a register's running totals with its movements.
type RegisterReconciliation struct {
	RegisterID      string
	Number          string
	RecordedIn      decimal.Decimal
	CalculatedIn    decimal.Decimal
	RecordedOut     decimal.Decimal
	CalculatedOut   decimal.Decimal
	MovementCount   int
	NegativeBalance bool
	IsReconciled    bool
	CheckedAt       time.Time
}

// ReconcileRegister sums the movements of a register and compares them with its totals.
func (uc *ReconciliationUseCase) ReconcileRegister(ctx context.Context, registerID string) (*RegisterReconciliation, error) {
	register, err := uc.registerRepo.GetByID(ctx, registerID)
	if err != nil {
		return nil, err
	}

	in, out := decimal.Zero, decimal.Zero
	for _, m := range register.Movements {
		if m.Direction == domain.DirectionIn {
			in = in.Add(m.Amount)
		} else {
			out = out.Add(m.Amount)
		}
	}

	result := &RegisterReconciliation{
		RegisterID:      register.ID,
		Number:          register.Number,
		RecordedIn:      register.TotalIn,
		CalculatedIn:    in,
		RecordedOut:     register.TotalOut,
		CalculatedOut:   out,
		MovementCount:   len(register.Movements),
		NegativeBalance: register.AvailableBalance().IsNegative(),
		CheckedAt:       uc.clock.Now(),
	}
	result.IsReconciled = in.Equal(register.TotalIn) && out.Equal(register.TotalOut) && !result.NegativeBalance
	return result, nil
}

// AccountDiscrepancy describes an obligation whose amounts disagree.
type AccountDiscrepancy struct {
	AccountID string
	Number    string
	Final     decimal.Decimal
	Paid      decimal.Decimal
	Remaining decimal.Decimal
	Problem   string
}

// AccountsReconciliation is the result of ReconcileAccounts.
type AccountsReconciliation struct {
	TotalAccounts int
	Discrepancies []AccountDiscrepancy
	IsReconciled  bool
	CheckedAt     time.Time
}

// ReconcileAccounts checks remaining = final - paid and paid <= final on every obligation of the tenant.
func (uc *ReconciliationUseCase) ReconcileAccounts(ctx context.Context) (*AccountsReconciliation, error) {
	report := &AccountsReconciliation{
		Discrepancies: make([]AccountDiscrepancy, 0),
		CheckedAt:     uc.clock.Now(),
	}

	for offset := 0; ; offset += reconcileBatch {
		accounts, err := uc.accountRepo.List(ctx, domain.AccountFilter{}, reconcileBatch, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts at offset %d: %w", offset, err)
		}
		for _, a := range accounts {
			report.TotalAccounts++
			if problem := checkAccount(a); problem != "" {
				report.Discrepancies = append(report.Discrepancies, AccountDiscrepancy{
					AccountID: a.ID,
					Number:    a.Number,
					Final:     a.FinalAmount,
					Paid:      a.PaidAmount,
					Remaining: a.RemainingAmount,
					Problem:   problem,
				})
			}
		}
		if len(accounts) < reconcileBatch {
			break
		}
	}

	report.IsReconciled = len(report.Discrepancies) == 0
	return report, nil
}

func checkAccount(a *domain.BillingAccount) string {
	switch {
	case !a.RemainingAmount.Equal(a.FinalAmount.Sub(a.PaidAmount)):
		return "remaining does not equal final minus paid"
	case a.PaidAmount.GreaterThan(a.FinalAmount):
		return "paid exceeds final"
	case a.Status == domain.StatusPaid && a.RemainingAmount.IsPositive():
		return "paid with amount remaining"
	}
	return ""
}
