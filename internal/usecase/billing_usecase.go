package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/metrics"
)

// BillingUseCase owns the receivable/payable lifecycle.
type BillingUseCase struct {
	txManager    TransactionManager
	accountRepo  BillingAccountRepository
	studentRepo  StudentRepository
	employeeRepo EmployeeRepository
	planRepo     PlanRepository
	discountRepo DiscountRepository
	registers    *CashRegisterUseCase
	sequences    SequenceAllocator
	retrier      Retrier
	idGen        IDGenerator
	clock        Clock
	journal      journal
	metrics      *metrics.Metrics
}

// BillingDeps groups the repositories the billing use case reads from.
type BillingDeps struct {
	Accounts  BillingAccountRepository
	Students  StudentRepository
	Employees EmployeeRepository
	Plans     PlanRepository
	Discounts DiscountRepository
	Outbox    OutboxRepository
	Audit     AuditRepository
}

func NewBillingUseCase(
	txManager TransactionManager,
	deps BillingDeps,
	registers *CashRegisterUseCase,
	sequences SequenceAllocator,
	retrier Retrier,
	idGen IDGenerator,
	clock Clock,
	metrics *metrics.Metrics,
) *BillingUseCase {
	return &BillingUseCase{
		txManager:    txManager,
		accountRepo:  deps.Accounts,
		studentRepo:  deps.Students,
		employeeRepo: deps.Employees,
		planRepo:     deps.Plans,
		discountRepo: deps.Discounts,
		registers:    registers,
		sequences:    sequences,
		retrier:      retrier,
		idGen:        idGen,
		clock:        clock,
		journal:      journal{outbox: deps.Outbox, audit: deps.Audit, idGen: idGen, clock: clock},
		metrics:      metrics,
	}
}

// CreateAccountInput represents input for creating a receivable or payable.
// OriginalAmount may be omitted for receivables that reference a plan.
type CreateAccountInput struct {
	Kind              domain.AccountKind
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
	OriginalAmount    *decimal.Decimal
	DiscountAmount    decimal.Decimal
	// PricingSnapshot marks OriginalAmount and DiscountAmount as already valued,
	// so the discount reference is kept for reporting and not read again.
	PricingSnapshot   bool
	DueDate           time.Time
	Installment       *int
	TotalInstallments *int
	Notes             string
}

// Create validates and persists a new obligation.
func (uc *BillingUseCase) Create(ctx context.Context, input CreateAccountInput) (*domain.BillingAccount, error) {
	account, err := uc.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.insertTx(txCtx, tx, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeCreated(account)
	return account, nil
}

// CreateTx creates an obligation inside the caller's transaction.
func (uc *BillingUseCase) CreateTx(ctx context.Context, tx Transaction, input CreateAccountInput) (*domain.BillingAccount, error) {
	account, err := uc.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := uc.insertTx(ctx, tx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// prepare resolves references and computes amounts. It performs no writes.
func (uc *BillingUseCase) prepare(ctx context.Context, input CreateAccountInput) (*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	if !input.Kind.IsValid() {
		return nil, domain.NewValidationError("invalid account kind %q", input.Kind)
	}

	account := &domain.BillingAccount{
		ID:                uc.idGen.Generate(),
		TenantID:          tenantID,
		Kind:              input.Kind,
		Category:          input.Category,
		Description:       input.Description,
		StudentID:         input.StudentID,
		PlanID:            input.PlanID,
		DiscountID:        input.DiscountID,
		EnrollmentID:      input.EnrollmentID,
		PeriodKey:         input.PeriodKey,
		EmployeeID:        input.EmployeeID,
		SupplierID:        input.SupplierID,
		SupplierName:      input.SupplierName,
		SupplierDocument:  input.SupplierDocument,
		Document:          input.Document,
		DiscountAmount:    input.DiscountAmount,
		DueDate:           input.DueDate,
		Installment:       input.Installment,
		TotalInstallments: input.TotalInstallments,
		Notes:             input.Notes,
	}
	if input.OriginalAmount != nil {
		account.OriginalAmount = *input.OriginalAmount
	}

	switch input.Kind {
	case domain.KindReceivable:
		if input.StudentID == nil || *input.StudentID == "" {
			return nil, domain.NewValidationError("student is required for a receivable")
		}
		if _, err := uc.studentRepo.GetByID(ctx, *input.StudentID); err != nil {
			return nil, err
		}
		if input.PlanID != nil {
			plan, err := uc.planRepo.GetByID(ctx, *input.PlanID)
			if err != nil {
				return nil, err
			}
			if input.OriginalAmount == nil {
				account.OriginalAmount = plan.Price
			}
		}
		// a pricing snapshot or an explicit discount amount wins over the discount reference
		if input.DiscountID != nil && !input.PricingSnapshot && input.DiscountAmount.IsZero() {
			discount, err := uc.discountRepo.GetByID(ctx, *input.DiscountID)
			if err != nil {
				return nil, err
			}
			off, err := discount.AmountFor(domain.RoundMoney(account.OriginalAmount))
			if err != nil {
				return nil, err
			}
			account.DiscountAmount = off
		}
	case domain.KindPayable:
		if input.EmployeeID != nil && *input.EmployeeID != "" {
			if _, err := uc.employeeRepo.GetByID(ctx, *input.EmployeeID); err != nil {
				return nil, err
			}
		}
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := account.Init(uc.clock.Now()); err != nil {
		return nil, err
	}
	return account, nil
}

func (uc *BillingUseCase) insertTx(ctx context.Context, tx Transaction, account *domain.BillingAccount) error {
	series := account.Kind.Series()
	n, err := uc.sequences.Next(ctx, tx, series)
	if err != nil {
		return err
	}
	account.Number = domain.FormatNumber(series, n)

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return err
	}

	event := domain.AccountEvent{
		AccountID:   account.ID,
		Number:      account.Number,
		Kind:        string(account.Kind),
		FinalAmount: account.FinalAmount.StringFixed(2),
		DueDate:     account.DueDate.Format(time.DateOnly),
	}
	if account.EnrollmentID != nil {
		event.EnrollmentID = *account.EnrollmentID
	}
	if err := uc.journal.event(ctx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated, event); err != nil {
		return err
	}
	return uc.journal.record(ctx, tx, domain.AuditActionAccountCreate, domain.ResourceBillingAccount, account.ID, nil, account)
}

// InstallmentInput represents a payable split into monthly installments.
type InstallmentInput struct {
	Base              CreateAccountInput
	TotalInstallments int
	TotalAmount       decimal.Decimal
	FirstDueDate      time.Time
}

// CreateInstallments creates TotalInstallments payables one month apart in one transaction.
// The last installment absorbs the rounding remainder.
func (uc *BillingUseCase) CreateInstallments(ctx context.Context, input InstallmentInput) ([]*domain.BillingAccount, error) {
	if input.TotalInstallments < 2 || input.TotalInstallments > installmentLimit {
		return nil, domain.NewValidationError("installments must be between 2 and %d", installmentLimit)
	}
	if err := domain.ValidatePositive("total amount", input.TotalAmount); err != nil {
		return nil, err
	}
	if input.FirstDueDate.IsZero() {
		return nil, domain.NewValidationError("first due date is required")
	}
	if input.Base.Kind == "" {
		input.Base.Kind = domain.KindPayable
	}

	total := domain.RoundMoney(input.TotalAmount)
	n := input.TotalInstallments
	share := total.Div(decimal.NewFromInt(int64(n))).RoundDown(domain.MoneyPlaces)
	last := total.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))

	prepared := make([]*domain.BillingAccount, 0, n)
	for i := 1; i <= n; i++ {
		in := input.Base
		amount := share
		if i == n {
			amount = last
		}
		idx, count := i, n
		in.OriginalAmount = &amount
		in.DueDate = domain.AddMonthsClamped(input.FirstDueDate, i-1)
		in.Description = fmt.Sprintf("%s - Installment %d/%d", input.Base.Description, i, n)
		in.Installment = &idx
		in.TotalInstallments = &count

		account, err := uc.prepare(ctx, in)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, account)
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	for _, account := range prepared {
		if err := uc.insertTx(txCtx, tx, account); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	for _, account := range prepared {
		uc.observeCreated(account)
	}
	return prepared, nil
}

// PaymentInput represents a payment against an obligation.
type PaymentInput struct {
	Amount      decimal.Decimal
	Method      domain.PaymentMethod
	PaymentDate *time.Time
	Interest    decimal.Decimal
	Penalty     decimal.Decimal
}

// PaymentResult is the outcome of a registered payment.
type PaymentResult struct {
	Account    *domain.BillingAccount
	Movement   *domain.Movement
	RegisterID string
}

// RegisterPayment applies a payment and records the matching cash movement in the open
// register. Both writes commit together or not at all.
func (uc *BillingUseCase) RegisterPayment(ctx context.Context, accountID string, input PaymentInput) (*PaymentResult, error) {
	start := time.Now()

	payment := domain.Payment{
		Amount:   input.Amount,
		Method:   input.Method,
		Interest: input.Interest,
		Penalty:  input.Penalty,
	}
	if input.PaymentDate != nil {
		payment.PaidAt = *input.PaymentDate
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}

	var result *PaymentResult
	err := runWithRetry(ctx, uc.retrier, func() error {
		r, err := uc.registerPaymentTx(ctx, accountID, payment)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsTotal.WithLabelValues(string(result.Account.Kind), string(payment.Method)).Inc()
		amount, _ := payment.Amount.Float64()
		uc.metrics.PaymentAmount.Observe(amount)
		uc.metrics.PaymentDuration.Observe(time.Since(start).Seconds())
	}
	return result, nil
}

func (uc *BillingUseCase) registerPaymentTx(ctx context.Context, accountID string, payment domain.Payment) (*PaymentResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// register first, then account: every writer locks in this order
	register, err := uc.registers.LockOpenTx(txCtx, tx)
	if err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, accountID)
	if err != nil {
		return nil, err
	}
	before := *account

	if err := account.ApplyPayment(payment, uc.clock.Now()); err != nil {
		return nil, err
	}
	if err := uc.accountRepo.Update(txCtx, tx, account); err != nil {
		return nil, err
	}

	movementInput := MovementInput{
		Direction:     account.MovementDirection(),
		Amount:        payment.Amount,
		Description:   account.PaymentDescription(),
		PaymentMethod: string(payment.Method),
		Category:      account.Category,
	}
	id := account.ID
	if account.Kind == domain.KindPayable {
		movementInput.PayableID = &id
	} else {
		movementInput.ReceivableID = &id
	}
	movement, err := uc.registers.AppendMovementTx(txCtx, tx, register, movementInput)
	if err != nil {
		return nil, err
	}

	if err := uc.journal.event(txCtx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypePaymentRegistered, domain.PaymentRegisteredEvent{
		AccountID:  account.ID,
		Number:     account.Number,
		Kind:       string(account.Kind),
		Amount:     movement.Amount.StringFixed(2),
		Method:     string(payment.Method),
		Remaining:  account.RemainingAmount.StringFixed(2),
		Status:     string(account.Status),
		RegisterID: register.ID,
		MovementID: movement.ID,
	}); err != nil {
		return nil, err
	}
	if err := uc.journal.record(txCtx, tx, domain.AuditActionPaymentRegister, domain.ResourceBillingAccount, account.ID, before, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return &PaymentResult{Account: account, Movement: movement, RegisterID: register.ID}, nil
}

// Cancel terminates an open obligation with a mandatory reason.
func (uc *BillingUseCase) Cancel(ctx context.Context, accountID, reason string) (*domain.BillingAccount, error) {
	var cancelled *domain.BillingAccount
	err := uc.withLockedAccount(ctx, accountID, func(txCtx context.Context, tx Transaction, account *domain.BillingAccount) error {
		before := *account
		if err := account.Cancel(reason, uc.clock.Now()); err != nil {
			return err
		}
		if err := uc.accountRepo.Update(txCtx, tx, account); err != nil {
			return err
		}
		if err := uc.journal.event(txCtx, tx, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCancelled, domain.AccountEvent{
			AccountID:   account.ID,
			Number:      account.Number,
			Kind:        string(account.Kind),
			FinalAmount: account.FinalAmount.StringFixed(2),
			DueDate:     account.DueDate.Format(time.DateOnly),
			Reason:      reason,
		}); err != nil {
			return err
		}
		cancelled = account
		return uc.journal.record(txCtx, tx, domain.AuditActionAccountCancel, domain.ResourceBillingAccount, account.ID, before, account)
	})
	if err != nil {
		return nil, err
	}
	if uc.metrics != nil {
		uc.metrics.AccountsCancelled.WithLabelValues(string(cancelled.Kind)).Inc()
	}
	return cancelled, nil
}

// Update patches an open obligation.
func (uc *BillingUseCase) Update(ctx context.Context, accountID string, patch domain.AccountPatch) (*domain.BillingAccount, error) {
	var updated *domain.BillingAccount
	err := uc.withLockedAccount(ctx, accountID, func(txCtx context.Context, tx Transaction, account *domain.BillingAccount) error {
		before := *account
		if err := account.ApplyPatch(patch, uc.clock.Today(), uc.clock.Now()); err != nil {
			return err
		}
		if err := uc.accountRepo.Update(txCtx, tx, account); err != nil {
			return err
		}
		updated = account
		return uc.journal.record(txCtx, tx, domain.AuditActionAccountUpdate, domain.ResourceBillingAccount, account.ID, before, account)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an obligation that has received no payment.
func (uc *BillingUseCase) Delete(ctx context.Context, accountID string) error {
	return uc.withLockedAccount(ctx, accountID, func(txCtx context.Context, tx Transaction, account *domain.BillingAccount) error {
		if account.HasPayments() {
			return domain.ErrAccountHasPayments
		}
		if err := uc.accountRepo.Delete(txCtx, tx, account.ID); err != nil {
			return err
		}
		return uc.journal.record(txCtx, tx, domain.AuditActionAccountDelete, domain.ResourceBillingAccount, account.ID, account, nil)
	})
}

// SweepOverdue moves every PENDING obligation due before today to OVERDUE.
// Re-running it the same day changes nothing.
func (uc *BillingUseCase) SweepOverdue(ctx context.Context) (int64, error) {
	if _, err := domain.MustTenant(ctx); err != nil {
		return 0, err
	}
	n, err := uc.accountRepo.MarkOverdue(ctx, uc.clock.Today())
	if err != nil {
		return 0, err
	}
	if uc.metrics != nil {
		uc.metrics.AccountsOverdue.Add(float64(n))
	}
	return n, nil
}

// Get returns one obligation.
func (uc *BillingUseCase) Get(ctx context.Context, accountID string) (*domain.BillingAccount, error) {
	return uc.accountRepo.GetByID(ctx, accountID)
}

// List returns obligations matching filter.
func (uc *BillingUseCase) List(ctx context.Context, filter domain.AccountFilter, limit, offset int) ([]*domain.BillingAccount, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.accountRepo.List(ctx, filter, limit, offset)
}

// TotalsByCategory aggregates obligations due within [from, to] per category.
func (uc *BillingUseCase) TotalsByCategory(ctx context.Context, kind domain.AccountKind, from, to time.Time) (*domain.CategoryTotals, error) {
	if !kind.IsValid() {
		return nil, domain.NewValidationError("invalid account kind %q", kind)
	}
	if to.Before(from) {
		return nil, domain.NewValidationError("end date must not precede start date")
	}
	rows, err := uc.accountRepo.TotalsByCategory(ctx, kind, domain.DateOf(from), domain.DateOf(to))
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })
	totals := &domain.CategoryTotals{
		Categories: rows,
		Total:      decimal.Zero,
		Paid:       decimal.Zero,
		Remaining:  decimal.Zero,
	}
	for _, row := range rows {
		totals.Total = totals.Total.Add(row.Total)
		totals.Paid = totals.Paid.Add(row.Paid)
		totals.Remaining = totals.Remaining.Add(row.Remaining)
		totals.Count += row.Count
	}
	return totals, nil
}

func (uc *BillingUseCase) withLockedAccount(ctx context.Context, accountID string, fn func(context.Context, Transaction, *domain.BillingAccount) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, accountID)
	if err != nil {
		return err
	}
	if err := fn(txCtx, tx, account); err != nil {
		return err
	}
	return tx.Commit(txCtx)
}

func (uc *BillingUseCase) observeCreated(account *domain.BillingAccount) {
	if uc.metrics != nil {
		uc.metrics.AccountsCreated.WithLabelValues(string(account.Kind)).Inc()
	}
}

// isAlreadyBilled reports whether err signals a duplicate enrollment/period charge.
func isAlreadyBilled(err error) bool {
	return errors.Is(err, domain.ErrAlreadyBilled)
}
