package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/metrics"
)

// Generation outcomes.
const (
	OutcomeGenerated = "generated"
	OutcomeExists    = "exists"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

// Skip reasons.
const (
	ReasonOneTimePlan   = "one-time plan"
	ReasonNotStarted    = "enrollment not started"
	ReasonPlanExpired   = "plan expired"
	ReasonAlreadyExists = "already generated"
)

const (
	jobBilling = "billing"
	jobOverdue = "overdue_sweep"
)

// GenerationDetail is the outcome for one enrollment.
type GenerationDetail struct {
	TenantID     string     `json:"tenant_id,omitempty"`
	EnrollmentID string     `json:"enrollment_id"`
	Code         string     `json:"code"`
	Outcome      string     `json:"outcome"`
	Reason       string     `json:"reason,omitempty"`
	Number       string     `json:"number,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	PeriodKey    string     `json:"period_key,omitempty"`
}

// GenerationResult aggregates a billing run.
type GenerationResult struct {
	Generated int                `json:"generated"`
	Existing  int                `json:"existing"`
	Skipped   int                `json:"skipped"`
	Errored   int                `json:"errored"`
	Details   []GenerationDetail `json:"details"`
}

func (r *GenerationResult) add(d GenerationDetail) {
	switch d.Outcome {
	case OutcomeGenerated:
		r.Generated++
	case OutcomeExists:
		r.Existing++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeError:
		r.Errored++
	}
	r.Details = append(r.Details, d)
}

func (r *GenerationResult) merge(other *GenerationResult) {
	for _, d := range other.Details {
		r.add(d)
	}
}

// SweepResult aggregates an overdue sweep across tenants.
type SweepResult struct {
	Updated  int64             `json:"updated"`
	ByTenant map[string]int64  `json:"by_tenant"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// BillingGenerator creates the periodic receivables of recurring enrollments.
type BillingGenerator struct {
	enrollmentRepo EnrollmentRepository
	accountRepo    BillingAccountRepository
	billing        *BillingUseCase
	tenants        TenantLister
	clock          Clock
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

func NewBillingGenerator(
	enrollmentRepo EnrollmentRepository,
	accountRepo BillingAccountRepository,
	billing *BillingUseCase,
	tenants TenantLister,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *BillingGenerator {
	return &BillingGenerator{
		enrollmentRepo: enrollmentRepo,
		accountRepo:    accountRepo,
		billing:        billing,
		tenants:        tenants,
		clock:          clock,
		logger:         logger.With().Str("component", "billing_generator").Logger(),
		metrics:        metrics,
	}
}

// Run generates the due receivables of the tenant in ctx.
// An error on one enrollment is recorded in its detail and processing continues.
func (g *BillingGenerator) Run(ctx context.Context) (*GenerationResult, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	billable, err := g.enrollmentRepo.ListBillable(ctx)
	if err != nil {
		g.observeRun(jobBilling, "failed", start)
		return nil, err
	}

	today := g.clock.Today()
	result := &GenerationResult{Details: make([]GenerationDetail, 0, len(billable))}
	for _, b := range billable {
		d := g.process(ctx, b, today)
		d.TenantID = tenantID
		if d.Outcome == OutcomeError {
			g.logger.Error().
				Str("tenant_id", tenantID).
				Str("enrollment", d.Code).
				Str("error", d.Reason).
				Msg("billing generation failed")
		}
		result.add(d)
		if g.metrics != nil {
			g.metrics.BillingOutcomes.WithLabelValues(d.Outcome).Inc()
		}
	}

	g.logger.Info().
		Str("tenant_id", tenantID).
		Int("generated", result.Generated).
		Int("existing", result.Existing).
		Int("skipped", result.Skipped).
		Int("errored", result.Errored).
		Msg("billing run finished")
	g.observeRun(jobBilling, "success", start)
	return result, nil
}

func (g *BillingGenerator) process(ctx context.Context, b domain.BillableEnrollment, today time.Time) GenerationDetail {
	e, plan := b.Enrollment, b.Plan
	d := GenerationDetail{EnrollmentID: e.ID, Code: e.Code}

	switch {
	case plan == nil:
		d.Outcome, d.Reason = OutcomeError, domain.Message(domain.ErrPlanNotFound)
		return d
	case !plan.IsRecurring():
		d.Outcome, d.Reason = OutcomeSkipped, ReasonOneTimePlan
		return d
	case e.DueDay == nil || !e.IsActive():
		d.Outcome, d.Reason = OutcomeSkipped, "not billable"
		return d
	case domain.MonthPrecedes(today, e.StartDate):
		d.Outcome, d.Reason = OutcomeSkipped, ReasonNotStarted
		return d
	case plan.Expired(e.StartDate, today):
		d.Outcome, d.Reason = OutcomeSkipped, ReasonPlanExpired
		return d
	}

	due := domain.NextDueDate(today, *e.DueDay, plan.Periodicity)
	period := domain.PeriodKey(due)
	d.DueDate, d.PeriodKey = &due, period

	existing, err := g.accountRepo.FindByEnrollmentPeriod(ctx, e.ID, period)
	switch {
	case err == nil:
		d.Outcome, d.Reason, d.Number = OutcomeExists, ReasonAlreadyExists, existing.Number
		return d
	case !errors.Is(err, domain.ErrNotFound):
		d.Outcome, d.Reason = OutcomeError, domain.Message(err)
		return d
	}

	enrollmentID := e.ID
	planID := e.PlanID
	studentID := e.StudentID
	original := e.OriginalPrice
	account, err := g.billing.Create(ctx, CreateAccountInput{
		Kind:            domain.KindReceivable,
		Category:        domain.CategoryTuition,
		Description:     plan.Name,
		StudentID:       &studentID,
		PlanID:          &planID,
		DiscountID:      e.DiscountID,
		EnrollmentID:    &enrollmentID,
		PeriodKey:       &period,
		OriginalAmount:  &original,
		DiscountAmount:  e.DiscountAmount,
		PricingSnapshot: true,
		DueDate:         due,
		Notes:           e.RecurringNote(period),
	})
	if isAlreadyBilled(err) {
		// lost a race with a concurrent run
		d.Outcome, d.Reason = OutcomeExists, ReasonAlreadyExists
		return d
	}
	if err != nil {
		d.Outcome, d.Reason = OutcomeError, domain.Message(err)
		return d
	}

	d.Outcome, d.Number = OutcomeGenerated, account.Number
	return d
}

// RunAll runs the generator for every tenant and merges the results.
func (g *BillingGenerator) RunAll(ctx context.Context) (*GenerationResult, error) {
	tenantIDs, err := g.tenants.ListTenantIDs(ctx)
	if err != nil {
		return nil, err
	}

	total := &GenerationResult{}
	for _, tenantID := range tenantIDs {
		res, err := g.Run(domain.WithTenant(ctx, tenantID))
		if err != nil {
			total.add(GenerationDetail{TenantID: tenantID, Outcome: OutcomeError, Reason: domain.Message(err)})
			continue
		}
		total.merge(res)
	}
	if total.Details == nil {
		total.Details = []GenerationDetail{}
	}
	return total, nil
}

// SweepAll runs the overdue sweep for every tenant.
func (g *BillingGenerator) SweepAll(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	tenantIDs, err := g.tenants.ListTenantIDs(ctx)
	if err != nil {
		g.observeRun(jobOverdue, "failed", start)
		return nil, err
	}

	result := &SweepResult{ByTenant: make(map[string]int64, len(tenantIDs))}
	for _, tenantID := range tenantIDs {
		n, err := g.billing.SweepOverdue(domain.WithTenant(ctx, tenantID))
		if err != nil {
			if result.Errors == nil {
				result.Errors = make(map[string]string)
			}
			result.Errors[tenantID] = domain.Message(err)
			g.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("overdue sweep failed")
			continue
		}
		result.ByTenant[tenantID] = n
		result.Updated += n
	}

	g.logger.Info().Int64("updated", result.Updated).Int("tenants", len(tenantIDs)).Msg("overdue sweep finished")
	g.observeRun(jobOverdue, "success", start)
	return result, nil
}

func (g *BillingGenerator) observeRun(job, status string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.BillingRuns.WithLabelValues(job, status).Inc()
	g.metrics.JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}
