package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/adapter/repository/memory"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
	"github.com/iho/gymledger/internal/usecase/mocks"
)

const testTenant = "gym-1"

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type env struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	clock *mocks.StubClock

	registerRepo   usecase.CashRegisterRepository
	accountRepo    usecase.BillingAccountRepository
	enrollmentRepo usecase.EnrollmentRepository
	outbox         *memory.OutboxRepository
	audit          *memory.AuditRepository

	registers   *usecase.CashRegisterUseCase
	billing     *usecase.BillingUseCase
	enrollments *usecase.EnrollmentUseCase
	catalog     *usecase.CatalogUseCase
	generator   *usecase.BillingGenerator
}

type envOptions struct {
	wrapRegisters func(usecase.CashRegisterRepository) usecase.CashRegisterRepository
	wrapAccounts  func(usecase.BillingAccountRepository) usecase.BillingAccountRepository
	retrier       usecase.Retrier
	tenants       usecase.TenantLister
}

type envOption func(*envOptions)

func withRegisterRepo(wrap func(usecase.CashRegisterRepository) usecase.CashRegisterRepository) envOption {
	return func(o *envOptions) { o.wrapRegisters = wrap }
}

func withAccountRepo(wrap func(usecase.BillingAccountRepository) usecase.BillingAccountRepository) envOption {
	return func(o *envOptions) { o.wrapAccounts = wrap }
}

func withRetrier(r usecase.Retrier) envOption {
	return func(o *envOptions) { o.retrier = r }
}

func withTenants(l usecase.TenantLister) envOption {
	return func(o *envOptions) { o.tenants = l }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	var o envOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := memory.New()
	clock := mocks.NewStubClock(testNow)
	ids := mocks.NewSequentialIDs("id")

	var registerRepo usecase.CashRegisterRepository = memory.NewCashRegisterRepository(store)
	if o.wrapRegisters != nil {
		registerRepo = o.wrapRegisters(registerRepo)
	}
	var accountRepo usecase.BillingAccountRepository = memory.NewBillingAccountRepository(store)
	if o.wrapAccounts != nil {
		accountRepo = o.wrapAccounts(accountRepo)
	}
	var tenants usecase.TenantLister = store
	if o.tenants != nil {
		tenants = o.tenants
	}

	enrollmentRepo := memory.NewEnrollmentRepository(store)
	plans := memory.NewPlanRepository(store)
	discounts := memory.NewDiscountRepository(store)
	students := memory.NewStudentRepository(store)
	employees := memory.NewEmployeeRepository(store)
	classes := memory.NewClassRepository(store)
	outbox := memory.NewOutboxRepository(store)
	audit := memory.NewAuditRepository(store)

	registers := usecase.NewCashRegisterUseCase(store, registerRepo, store, outbox, audit, ids, clock, nil)
	billing := usecase.NewBillingUseCase(store, usecase.BillingDeps{
		Accounts:  accountRepo,
		Students:  students,
		Employees: employees,
		Plans:     plans,
		Discounts: discounts,
		Outbox:    outbox,
		Audit:     audit,
	}, registers, store, o.retrier, ids, clock, nil)
	enrollments := usecase.NewEnrollmentUseCase(store, usecase.EnrollmentDeps{
		Enrollments: enrollmentRepo,
		Accounts:    accountRepo,
		Students:    students,
		Plans:       plans,
		Discounts:   discounts,
		Classes:     classes,
		Outbox:      outbox,
		Audit:       audit,
	}, billing, store, ids, clock, nil)
	catalog := usecase.NewCatalogUseCase(store, usecase.CatalogDeps{
		Plans:     plans,
		Discounts: discounts,
		Students:  students,
		Employees: employees,
		Classes:   classes,
	}, store, ids, clock)
	generator := usecase.NewBillingGenerator(enrollmentRepo, accountRepo, billing, tenants, clock, zerolog.Nop(), nil)

	return &env{
		t:              t,
		ctx:            domain.WithTenant(context.Background(), testTenant),
		store:          store,
		clock:          clock,
		registerRepo:   registerRepo,
		accountRepo:    accountRepo,
		enrollmentRepo: enrollmentRepo,
		outbox:         outbox,
		audit:          audit,
		registers:      registers,
		billing:        billing,
		enrollments:    enrollments,
		catalog:        catalog,
		generator:      generator,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *env) openRegister(float string) *domain.CashRegister {
	e.t.Helper()
	reg, err := e.registers.Open(e.ctx, usecase.OpenRegisterInput{OpeningFloat: dec(float), OpenedBy: "ana"})
	if err != nil {
		e.t.Fatalf("open register: %v", err)
	}
	return reg
}

func (e *env) student(name string) *domain.Student {
	e.t.Helper()
	s, err := e.catalog.CreateStudent(e.ctx, usecase.CreateStudentInput{Name: name})
	if err != nil {
		e.t.Fatalf("create student: %v", err)
	}
	return s
}

func (e *env) plan(input usecase.CreatePlanInput) *domain.Plan {
	e.t.Helper()
	if input.Name == "" {
		input.Name = "Monthly"
	}
	if input.Periodicity == "" {
		input.Periodicity = domain.PeriodicityMonthly
	}
	p, err := e.catalog.CreatePlan(e.ctx, input)
	if err != nil {
		e.t.Fatalf("create plan: %v", err)
	}
	return p
}

func (e *env) receivable(original, discount string) *domain.BillingAccount {
	e.t.Helper()
	st := e.student("Bruno")
	a, err := e.billing.Create(e.ctx, usecase.CreateAccountInput{
		Kind:           domain.KindReceivable,
		Category:       domain.CategoryTuition,
		Description:    "Monthly fee",
		StudentID:      &st.ID,
		OriginalAmount: decPtr(original),
		DiscountAmount: dec(discount),
		DueDate:        date(2024, 3, 15),
	})
	if err != nil {
		e.t.Fatalf("create receivable: %v", err)
	}
	return a
}

func (e *env) account(id string) *domain.BillingAccount {
	e.t.Helper()
	a, err := e.accountRepo.GetByID(e.ctx, id)
	if err != nil {
		e.t.Fatalf("get account %s: %v", id, err)
	}
	return a
}

func (e *env) register(id string) *domain.CashRegister {
	e.t.Helper()
	r, err := e.registerRepo.GetByID(e.ctx, id)
	if err != nil {
		e.t.Fatalf("get register %s: %v", id, err)
	}
	return r
}

func assertAmountsConsistent(t *testing.T, a *domain.BillingAccount) {
	t.Helper()
	if !a.RemainingAmount.Equal(a.FinalAmount.Sub(a.PaidAmount)) {
		t.Fatalf("remaining %s != final %s - paid %s", a.RemainingAmount, a.FinalAmount, a.PaidAmount)
	}
}

// failingRegisterRepo fails every movement insert.
type failingRegisterRepo struct {
	usecase.CashRegisterRepository
	err error
}

func (f failingRegisterRepo) AddMovement(context.Context, usecase.Transaction, *domain.Movement) error {
	return f.err
}
