package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
	"github.com/iho/gymledger/internal/usecase/mocks"
)

func (e *env) enroll(ctx context.Context, plan *domain.Plan, start time.Time, dueDay *int) *domain.Enrollment {
	e.t.Helper()
	st, err := e.catalog.CreateStudent(ctx, usecase.CreateStudentInput{Name: "Gabi"})
	if err != nil {
		e.t.Fatalf("create student: %v", err)
	}
	res, err := e.enrollments.Create(ctx, usecase.CreateEnrollmentInput{
		StudentID: st.ID,
		PlanID:    plan.ID,
		StartDate: start,
		DueDay:    dueDay,
	})
	if err != nil {
		e.t.Fatalf("create enrollment: %v", err)
	}
	return res.Enrollment
}

// flakyAccounts fails the existence lookup for one enrollment.
type flakyAccounts struct {
	usecase.BillingAccountRepository
	failFor string
}

func (f *flakyAccounts) FindByEnrollmentPeriod(ctx context.Context, enrollmentID, periodKey string) (*domain.BillingAccount, error) {
	if enrollmentID == f.failFor {
		return nil, errors.New("connection reset")
	}
	return f.BillingAccountRepository.FindByEnrollmentPeriod(ctx, enrollmentID, periodKey)
}

func TestBillingGenerator_ClampsDueDay(t *testing.T) {
	e := newEnv(t)
	e.clock.Set(time.Date(2023, 1, 15, 8, 0, 0, 0, time.UTC))
	plan := e.plan(usecase.CreatePlanInput{Price: dec("150")})
	enrollment := e.enroll(e.ctx, plan, date(2023, 1, 15), intPtr(31))

	e.clock.Set(time.Date(2023, 2, 10, 8, 0, 0, 0, time.UTC))
	res, err := e.generator.Run(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Generated != 1 || len(res.Details) != 1 {
		t.Fatalf("expected one generated charge, got %+v", res)
	}
	d := res.Details[0]
	if d.DueDate == nil || !d.DueDate.Equal(date(2023, 2, 28)) || d.PeriodKey != "02/2023" {
		t.Fatalf("expected due 2023-02-28 in 02/2023, got %s %s", d.DueDate, d.PeriodKey)
	}

	account, err := e.accountRepo.FindByEnrollmentPeriod(e.ctx, enrollment.ID, "02/2023")
	if err != nil {
		t.Fatalf("expected generated receivable: %v", err)
	}
	if !account.FinalAmount.Equal(dec("150")) || account.Description != plan.Name {
		t.Fatalf("unexpected receivable %s %q", account.FinalAmount, account.Description)
	}
	if account.Notes != enrollment.RecurringNote("02/2023") {
		t.Fatalf("unexpected notes %q", account.Notes)
	}
}

func TestBillingGenerator_ExactlyOnce(t *testing.T) {
	e := newEnv(t)
	plan := e.plan(usecase.CreatePlanInput{Price: dec("99.90")})
	enrollment := e.enroll(e.ctx, plan, date(2024, 3, 1), intPtr(20))

	// the first charge created with the enrollment already covers 03/2024
	res, err := e.generator.Run(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Existing != 1 || res.Generated != 0 {
		t.Fatalf("expected the enrollment charge to count as existing, got %+v", res)
	}

	e.clock.Set(time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC))
	for run := 1; run <= 3; run++ {
		res, err = e.generator.Run(e.ctx)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		want := 0
		if run == 1 {
			want = 1
		}
		if res.Generated != want {
			t.Fatalf("run %d: expected %d generated, got %+v", run, want, res)
		}
	}

	accounts, err := e.billing.List(e.ctx, domain.AccountFilter{Kind: domain.KindReceivable, EnrollmentID: &enrollment.ID}, 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected charges for 03/2024 and 04/2024, got %d", len(accounts))
	}
}

func TestBillingGenerator_ZeroDiscountSnapshotSurvivesInactivation(t *testing.T) {
	e := newEnv(t)
	plan := e.plan(usecase.CreatePlanInput{Price: dec("120")})
	discount, err := e.catalog.CreateDiscount(e.ctx, usecase.CreateDiscountInput{Name: "Promo", Type: domain.DiscountPercentage, Value: dec("0")})
	if err != nil {
		t.Fatalf("create discount: %v", err)
	}
	st, err := e.catalog.CreateStudent(e.ctx, usecase.CreateStudentInput{Name: "Rafa"})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	res, err := e.enrollments.Create(e.ctx, usecase.CreateEnrollmentInput{
		StudentID:  st.ID,
		PlanID:     plan.ID,
		StartDate:  date(2024, 3, 1),
		DiscountID: &discount.ID,
		DueDay:     intPtr(20),
	})
	if err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	if !res.Enrollment.DiscountAmount.IsZero() {
		t.Fatalf("expected a zero discount snapshot, got %s", res.Enrollment.DiscountAmount)
	}
	if _, err := e.catalog.SetDiscountActive(e.ctx, discount.ID, false); err != nil {
		t.Fatalf("inactivate discount: %v", err)
	}

	e.clock.Set(time.Date(2024, 3, 25, 8, 0, 0, 0, time.UTC))
	run, err := e.generator.Run(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Generated != 1 || run.Errored != 0 {
		t.Fatalf("expected the charge to be generated from the snapshot, got %+v", run)
	}

	account, err := e.accountRepo.FindByEnrollmentPeriod(e.ctx, res.Enrollment.ID, "04/2024")
	if err != nil {
		t.Fatalf("expected generated receivable: %v", err)
	}
	if !account.FinalAmount.Equal(dec("120")) || account.DiscountID == nil || *account.DiscountID != discount.ID {
		t.Fatalf("unexpected receivable %s %v", account.FinalAmount, account.DiscountID)
	}
}

func TestBillingGenerator_CancelledChargeIsRegenerated(t *testing.T) {
	e := newEnv(t)
	plan := e.plan(usecase.CreatePlanInput{Price: dec("80")})
	e.enroll(e.ctx, plan, date(2024, 3, 1), intPtr(15))

	accounts, _ := e.billing.List(e.ctx, domain.AccountFilter{Kind: domain.KindReceivable}, 10, 0)
	if len(accounts) != 1 {
		t.Fatalf("expected the first charge, got %d", len(accounts))
	}
	if _, err := e.billing.Cancel(e.ctx, accounts[0].ID, "wrong amount"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	res, err := e.generator.Run(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Generated != 1 {
		t.Fatalf("expected a new charge after cancellation, got %+v", res)
	}
}

func TestBillingGenerator_Skips(t *testing.T) {
	e := newEnv(t)

	oneTime := e.plan(usecase.CreatePlanInput{Name: "Day pass", Periodicity: domain.PeriodicityAnnual, ChargeType: domain.ChargeOneTime, Price: dec("30")})
	e.enroll(e.ctx, oneTime, date(2024, 3, 1), nil)

	monthly := e.plan(usecase.CreatePlanInput{Price: dec("100")})
	future := e.enroll(e.ctx, monthly, date(2024, 5, 1), intPtr(5))

	short := e.plan(usecase.CreatePlanInput{Name: "Two months", Periodicity: domain.PeriodicityMonths, MonthCount: intPtr(2), Price: dec("180")})
	expired := e.enroll(e.ctx, short, date(2023, 12, 1), intPtr(1))

	res, err := e.generator.Run(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Generated != 0 || res.Skipped != 2 {
		t.Fatalf("expected two skips and nothing generated, got %+v", res)
	}

	reasons := map[string]string{}
	for _, d := range res.Details {
		reasons[d.EnrollmentID] = d.Reason
	}
	if len(reasons) != 2 {
		t.Fatalf("one-time plans must not be selected, got %+v", res.Details)
	}
	if reasons[future.ID] != usecase.ReasonNotStarted {
		t.Fatalf("expected %q, got %q", usecase.ReasonNotStarted, reasons[future.ID])
	}
	if reasons[expired.ID] != usecase.ReasonPlanExpired {
		t.Fatalf("expected %q, got %q", usecase.ReasonPlanExpired, reasons[expired.ID])
	}
	for _, d := range res.Details {
		if d.DueDate != nil || d.PeriodKey != "" {
			t.Fatalf("skipped detail must not carry a due date, got %+v", d)
		}
	}
}

func TestBillingGenerator_InactiveEnrollmentNotBilled(t *testing.T) {
	e := newEnv(t)
	plan := e.plan(usecase.CreatePlanInput{Price: dec("100")})
	enrollment := e.enroll(e.ctx, plan, date(2024, 2, 1), intPtr(5))
	if _, err := e.enrollments.Inactivate(e.ctx, enrollment.ID, "moved away"); err != nil {
		t.Fatalf("inactivate: %v", err)
	}

	res, err := e.generator.Run(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Details) != 0 {
		t.Fatalf("expected no details for an inactive enrollment, got %+v", res.Details)
	}
}

func TestBillingGenerator_ErrorIsolation(t *testing.T) {
	flaky := &flakyAccounts{}
	e := newEnv(t, withAccountRepo(func(r usecase.BillingAccountRepository) usecase.BillingAccountRepository {
		flaky.BillingAccountRepository = r
		return flaky
	}))
	plan := e.plan(usecase.CreatePlanInput{Price: dec("100")})
	broken := e.enroll(e.ctx, plan, date(2024, 2, 1), intPtr(5))
	healthy := e.enroll(e.ctx, plan, date(2024, 2, 1), intPtr(5))
	flaky.failFor = broken.ID

	res, err := e.generator.Run(e.ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Errored != 1 || res.Generated != 1 {
		t.Fatalf("expected one error and one generated charge, got %+v", res)
	}
	for _, d := range res.Details {
		switch d.EnrollmentID {
		case broken.ID:
			if d.Outcome != usecase.OutcomeError || d.Reason != "connection reset" {
				t.Fatalf("unexpected detail for the failing enrollment: %+v", d)
			}
		case healthy.ID:
			if d.Outcome != usecase.OutcomeGenerated || d.PeriodKey != "04/2024" {
				t.Fatalf("unexpected detail for the healthy enrollment: %+v", d)
			}
		}
	}
}

func TestBillingGenerator_RunAll(t *testing.T) {
	e := newEnv(t)
	other := domain.WithTenant(context.Background(), "gym-2")

	plan := e.plan(usecase.CreatePlanInput{Price: dec("100")})
	e.enroll(e.ctx, plan, date(2024, 2, 1), intPtr(5))

	otherPlan, err := e.catalog.CreatePlan(other, usecase.CreatePlanInput{Name: "Monthly", Periodicity: domain.PeriodicityMonthly, Price: dec("70")})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	e.enroll(other, otherPlan, date(2024, 2, 1), intPtr(5))

	res, err := e.generator.RunAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Generated != 2 {
		t.Fatalf("expected one charge per tenant, got %+v", res)
	}
	tenants := map[string]bool{}
	for _, d := range res.Details {
		tenants[d.TenantID] = true
	}
	if !tenants[testTenant] || !tenants["gym-2"] {
		t.Fatalf("expected details for both tenants, got %+v", res.Details)
	}

	if _, err := e.generator.Run(context.Background()); !errors.Is(err, domain.ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant without a tenant, got %v", err)
	}
}

func TestBillingGenerator_SweepAll(t *testing.T) {
	e := newEnv(t)
	e.receivable("100", "0")
	st := e.student("Hugo")
	if _, err := e.billing.Create(e.ctx, usecase.CreateAccountInput{
		Kind: domain.KindReceivable, StudentID: &st.ID, OriginalAmount: decPtr("40"), DueDate: date(2024, 3, 2),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	e.clock.Set(time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC))
	res, err := e.generator.SweepAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Updated != 2 || res.ByTenant[testTenant] != 2 {
		t.Fatalf("expected two overdue accounts, got %+v", res)
	}

	res, err = e.generator.SweepAll(context.Background())
	if err != nil || res.Updated != 0 {
		t.Fatalf("expected an idempotent sweep, got %+v, %v", res, err)
	}
}

func TestBillingGenerator_TenantListFailure(t *testing.T) {
	e := newEnv(t, withTenants(&mocks.MockTenantLister{Err: errors.New("db down")}))

	if _, err := e.generator.RunAll(context.Background()); err == nil {
		t.Fatal("expected the tenant list failure to surface")
	}
	if _, err := e.generator.SweepAll(context.Background()); err == nil {
		t.Fatal("expected the tenant list failure to surface")
	}
}
