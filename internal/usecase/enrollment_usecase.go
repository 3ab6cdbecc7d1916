package usecase

import (
	"context"
	"time"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/metrics"
)

// EnrollmentUseCase values enrollments and creates their first charge.
type EnrollmentUseCase struct {
	txManager      TransactionManager
	enrollmentRepo EnrollmentRepository
	accountRepo    BillingAccountRepository
	studentRepo    StudentRepository
	planRepo       PlanRepository
	discountRepo   DiscountRepository
	classRepo      ClassRepository
	billing        *BillingUseCase
	sequences      SequenceAllocator
	idGen          IDGenerator
	clock          Clock
	journal        journal
	metrics        *metrics.Metrics
}

// EnrollmentDeps groups the repositories the enrollment use case reads from.
type EnrollmentDeps struct {
	Enrollments EnrollmentRepository
	Accounts    BillingAccountRepository
	Students    StudentRepository
	Plans       PlanRepository
	Discounts   DiscountRepository
	Classes     ClassRepository
	Outbox      OutboxRepository
	Audit       AuditRepository
}

func NewEnrollmentUseCase(
	txManager TransactionManager,
	deps EnrollmentDeps,
	billing *BillingUseCase,
	sequences SequenceAllocator,
	idGen IDGenerator,
	clock Clock,
	metrics *metrics.Metrics,
) *EnrollmentUseCase {
	return &EnrollmentUseCase{
		txManager:      txManager,
		enrollmentRepo: deps.Enrollments,
		accountRepo:    deps.Accounts,
		studentRepo:    deps.Students,
		planRepo:       deps.Plans,
		discountRepo:   deps.Discounts,
		classRepo:      deps.Classes,
		billing:        billing,
		sequences:      sequences,
		idGen:          idGen,
		clock:          clock,
		journal:        journal{outbox: deps.Outbox, audit: deps.Audit, idGen: idGen, clock: clock},
		metrics:        metrics,
	}
}

// CreateEnrollmentInput represents input for enrolling a student in a plan.
type CreateEnrollmentInput struct {
	StudentID     string
	PlanID        string
	StartDate     time.Time
	ClassID       *string
	DiscountID    *string
	DueDay        *int
	PaymentMethod domain.PaymentMethod
	Installments  int
	Notes         string
}

// EnrollmentResult is returned by Create.
type EnrollmentResult struct {
	Enrollment      *domain.Enrollment
	FirstReceivable *domain.BillingAccount
}

// Create persists the enrollment and its first receivable in one transaction.
func (uc *EnrollmentUseCase) Create(ctx context.Context, input CreateEnrollmentInput) (*EnrollmentResult, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	if input.StartDate.IsZero() {
		return nil, domain.NewValidationError("start date is required")
	}
	if input.Installments == 0 {
		input.Installments = 1
	}
	if input.Installments < 1 || input.Installments > installmentLimit {
		return nil, domain.NewValidationError("installments must be between 1 and %d", installmentLimit)
	}
	if input.PaymentMethod != "" {
		if err := domain.ValidatePaymentMethod(input.PaymentMethod); err != nil {
			return nil, err
		}
	}

	if _, err := uc.studentRepo.GetByID(ctx, input.StudentID); err != nil {
		return nil, err
	}
	plan, err := uc.planRepo.GetByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if input.ClassID != nil {
		if _, err := uc.classRepo.GetByID(ctx, *input.ClassID); err != nil {
			return nil, err
		}
	}
	discount, err := uc.discount(ctx, input.DiscountID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	enrollment := &domain.Enrollment{
		ID:            uc.idGen.Generate(),
		TenantID:      tenantID,
		StudentID:     input.StudentID,
		ClassID:       input.ClassID,
		StartDate:     input.StartDate,
		Status:        domain.EnrollmentActive,
		Installments:  input.Installments,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := enrollment.Apply(plan, discount, input.DueDay); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	n, err := uc.sequences.Next(txCtx, tx, domain.SeriesEnrollment)
	if err != nil {
		return nil, err
	}
	enrollment.Code = domain.FormatNumber(domain.SeriesEnrollment, n)

	if err := uc.enrollmentRepo.Create(txCtx, tx, enrollment); err != nil {
		return nil, err
	}

	receivable, err := uc.firstReceivableTx(txCtx, tx, enrollment, plan)
	if err != nil {
		return nil, err
	}

	if err := uc.journal.event(txCtx, tx, domain.AggregateTypeEnrollment, enrollment.ID, domain.EventTypeEnrollmentCreated, domain.EnrollmentCreatedEvent{
		EnrollmentID: enrollment.ID,
		Code:         enrollment.Code,
		StudentID:    enrollment.StudentID,
		PlanID:       enrollment.PlanID,
		FinalPrice:   enrollment.FinalPrice.StringFixed(2),
	}); err != nil {
		return nil, err
	}
	if err := uc.journal.record(txCtx, tx, domain.AuditActionEnrollmentCreate, domain.ResourceEnrollment, enrollment.ID, nil, enrollment); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EnrollmentsCreated.Inc()
	}
	if receivable != nil {
		uc.billing.observeCreated(receivable)
	}

	return &EnrollmentResult{Enrollment: enrollment, FirstReceivable: receivable}, nil
}

// firstReceivableTx creates the charge that accompanies a new enrollment.
// Free plans produce no charge.
func (uc *EnrollmentUseCase) firstReceivableTx(ctx context.Context, tx Transaction, enrollment *domain.Enrollment, plan *domain.Plan) (*domain.BillingAccount, error) {
	if !enrollment.OriginalPrice.IsPositive() {
		return nil, nil
	}
	due := enrollment.FirstDueDate(plan)
	period := domain.PeriodKey(due)
	enrollmentID, studentID, planID := enrollment.ID, enrollment.StudentID, enrollment.PlanID
	installment, total := 1, enrollment.Installments
	original := enrollment.OriginalPrice
	return uc.billing.CreateTx(ctx, tx, CreateAccountInput{
		Kind:              domain.KindReceivable,
		Category:          domain.CategoryTuition,
		Description:       plan.Name,
		StudentID:         &studentID,
		PlanID:            &planID,
		DiscountID:        enrollment.DiscountID,
		EnrollmentID:      &enrollmentID,
		PeriodKey:         &period,
		OriginalAmount:    &original,
		DiscountAmount:    enrollment.DiscountAmount,
		PricingSnapshot:   true,
		DueDate:           due,
		Installment:       &installment,
		TotalInstallments: &total,
		Notes:             enrollment.FirstChargeNote(),
	})
}

// Update patches an enrollment, revaluing it when plan, discount, start date or due day change.
func (uc *EnrollmentUseCase) Update(ctx context.Context, id string, patch domain.EnrollmentPatch) (*domain.Enrollment, error) {
	if patch.Installments != nil && (*patch.Installments < 1 || *patch.Installments > installmentLimit) {
		return nil, domain.NewValidationError("installments must be between 1 and %d", installmentLimit)
	}
	if patch.PaymentMethod != nil {
		if err := domain.ValidatePaymentMethod(*patch.PaymentMethod); err != nil {
			return nil, err
		}
	}
	if patch.ClassID != nil {
		if _, err := uc.classRepo.GetByID(ctx, *patch.ClassID); err != nil {
			return nil, err
		}
	}

	var updated *domain.Enrollment
	err := uc.withLockedEnrollment(ctx, id, func(txCtx context.Context, tx Transaction, e *domain.Enrollment) error {
		before := *e
		if patch.Reprices() {
			if err := uc.revalue(ctx, e, patch); err != nil {
				return err
			}
		}
		switch {
		case patch.ClearClass:
			e.ClassID = nil
		case patch.ClassID != nil:
			e.ClassID = patch.ClassID
		}
		if patch.PaymentMethod != nil {
			e.PaymentMethod = *patch.PaymentMethod
		}
		if patch.Installments != nil {
			e.Installments = *patch.Installments
		}
		if patch.Notes != nil {
			e.Notes = *patch.Notes
		}
		e.UpdatedAt = uc.clock.Now()

		if err := uc.enrollmentRepo.Update(txCtx, tx, e); err != nil {
			return err
		}
		updated = e
		return uc.journal.record(txCtx, tx, domain.AuditActionEnrollmentUpdate, domain.ResourceEnrollment, e.ID, before, e)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (uc *EnrollmentUseCase) revalue(ctx context.Context, e *domain.Enrollment, patch domain.EnrollmentPatch) error {
	planID := e.PlanID
	if patch.PlanID != nil {
		planID = *patch.PlanID
	}
	plan, err := uc.planRepo.GetByID(ctx, planID)
	if err != nil {
		return err
	}

	discountID := e.DiscountID
	switch {
	case patch.ClearDiscount:
		discountID = nil
	case patch.DiscountID != nil:
		discountID = patch.DiscountID
	}
	discount, err := uc.discount(ctx, discountID)
	if err != nil {
		return err
	}

	if patch.StartDate != nil {
		e.StartDate = *patch.StartDate
	}
	dueDay := e.DueDay
	if patch.DueDay != nil {
		dueDay = patch.DueDay
	}
	return e.Apply(plan, discount, dueDay)
}

// Inactivate suspends billing of an enrollment.
func (uc *EnrollmentUseCase) Inactivate(ctx context.Context, id, reason string) (*domain.Enrollment, error) {
	return uc.transition(ctx, id, func(e *domain.Enrollment) error {
		return e.Inactivate(reason, uc.clock.Now())
	})
}

// Reactivate resumes billing of an enrollment.
func (uc *EnrollmentUseCase) Reactivate(ctx context.Context, id string) (*domain.Enrollment, error) {
	return uc.transition(ctx, id, func(e *domain.Enrollment) error {
		return e.Reactivate(uc.clock.Now())
	})
}

func (uc *EnrollmentUseCase) transition(ctx context.Context, id string, fn func(*domain.Enrollment) error) (*domain.Enrollment, error) {
	var updated *domain.Enrollment
	err := uc.withLockedEnrollment(ctx, id, func(txCtx context.Context, tx Transaction, e *domain.Enrollment) error {
		before := *e
		if err := fn(e); err != nil {
			return err
		}
		if err := uc.enrollmentRepo.Update(txCtx, tx, e); err != nil {
			return err
		}
		updated = e
		return uc.journal.record(txCtx, tx, domain.AuditActionEnrollmentUpdate, domain.ResourceEnrollment, e.ID, before, e)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an enrollment and its unpaid receivables.
// It fails when any linked receivable has received a payment.
func (uc *EnrollmentUseCase) Delete(ctx context.Context, id string) error {
	return uc.withLockedEnrollment(ctx, id, func(txCtx context.Context, tx Transaction, e *domain.Enrollment) error {
		accounts, err := uc.accountRepo.ListByEnrollment(txCtx, tx, e.ID)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if a.HasPayments() {
				return domain.ErrEnrollmentHasPayments
			}
		}
		for _, a := range accounts {
			if err := uc.accountRepo.Delete(txCtx, tx, a.ID); err != nil {
				return err
			}
		}
		if err := uc.enrollmentRepo.Delete(txCtx, tx, e.ID); err != nil {
			return err
		}
		return uc.journal.record(txCtx, tx, domain.AuditActionEnrollmentDelete, domain.ResourceEnrollment, e.ID, e, nil)
	})
}

// Get returns one enrollment.
func (uc *EnrollmentUseCase) Get(ctx context.Context, id string) (*domain.Enrollment, error) {
	return uc.enrollmentRepo.GetByID(ctx, id)
}

// List returns enrollments matching filter.
func (uc *EnrollmentUseCase) List(ctx context.Context, filter domain.EnrollmentFilter, limit, offset int) ([]*domain.Enrollment, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.enrollmentRepo.List(ctx, filter, limit, offset)
}

func (uc *EnrollmentUseCase) discount(ctx context.Context, id *string) (*domain.Discount, error) {
	if id == nil {
		return nil, nil
	}
	d, err := uc.discountRepo.GetByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, domain.ErrDiscountInactive
	}
	return d, nil
}

func (uc *EnrollmentUseCase) withLockedEnrollment(ctx context.Context, id string, fn func(context.Context, Transaction, *domain.Enrollment) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	e, err := uc.enrollmentRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return err
	}
	if err := fn(txCtx, tx, e); err != nil {
		return err
	}
	return tx.Commit(txCtx)
}
