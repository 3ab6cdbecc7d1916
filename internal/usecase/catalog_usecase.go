package usecase

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
)

// CatalogUseCase manages plans, discounts and the people and classes obligations refer to.
type CatalogUseCase struct {
	txManager    TransactionManager
	planRepo     PlanRepository
	discountRepo DiscountRepository
	studentRepo  StudentRepository
	employeeRepo EmployeeRepository
	classRepo    ClassRepository
	sequences    SequenceAllocator
	idGen        IDGenerator
	clock        Clock
}

// CatalogDeps groups the catalog repositories.
type CatalogDeps struct {
	Plans     PlanRepository
	Discounts DiscountRepository
	Students  StudentRepository
	Employees EmployeeRepository
	Classes   ClassRepository
}

func NewCatalogUseCase(txManager TransactionManager, deps CatalogDeps, sequences SequenceAllocator, idGen IDGenerator, clock Clock) *CatalogUseCase {
	return &CatalogUseCase{
		txManager:    txManager,
		planRepo:     deps.Plans,
		discountRepo: deps.Discounts,
		studentRepo:  deps.Students,
		employeeRepo: deps.Employees,
		classRepo:    deps.Classes,
		sequences:    sequences,
		idGen:        idGen,
		clock:        clock,
	}
}

// CreatePlanInput represents input for creating a plan.
type CreatePlanInput struct {
	Name        string
	Periodicity domain.Periodicity
	ChargeType  domain.ChargeType
	Price       decimal.Decimal
	MonthCount  *int
	DayCount    *int
}

// CreatePlan validates and stores a plan, assigning its code.
func (uc *CatalogUseCase) CreatePlan(ctx context.Context, input CreatePlanInput) (*domain.Plan, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	if input.ChargeType == "" {
		input.ChargeType = domain.ChargeRecurring
	}

	now := uc.clock.Now()
	plan := &domain.Plan{
		ID:          uc.idGen.Generate(),
		TenantID:    tenantID,
		Name:        input.Name,
		Periodicity: input.Periodicity,
		ChargeType:  input.ChargeType,
		Price:       domain.RoundMoney(input.Price),
		MonthCount:  input.MonthCount,
		DayCount:    input.DayCount,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	n, err := uc.sequences.Next(txCtx, tx, domain.SeriesPlan)
	if err != nil {
		return nil, err
	}
	plan.Code = domain.FormatNumber(domain.SeriesPlan, n)

	if err := uc.planRepo.Create(txCtx, tx, plan); err != nil {
		return nil, err
	}
	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}
	return plan, nil
}

func (uc *CatalogUseCase) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	return uc.planRepo.GetByID(ctx, id)
}

func (uc *CatalogUseCase) ListPlans(ctx context.Context, limit, offset int) ([]*domain.Plan, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.planRepo.List(ctx, limit, offset)
}

// SetPlanActive toggles whether new enrollments may reference the plan.
func (uc *CatalogUseCase) SetPlanActive(ctx context.Context, id string, active bool) (*domain.Plan, error) {
	plan, err := uc.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Active = active
	plan.UpdatedAt = uc.clock.Now()
	if err := uc.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// CreateDiscountInput represents input for creating a discount.
type CreateDiscountInput struct {
	Name  string
	Type  domain.DiscountType
	Value decimal.Decimal
}

func (uc *CatalogUseCase) CreateDiscount(ctx context.Context, input CreateDiscountInput) (*domain.Discount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	discount := &domain.Discount{
		ID:        uc.idGen.Generate(),
		TenantID:  tenantID,
		Name:      input.Name,
		Type:      input.Type,
		Value:     input.Value,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := discount.Validate(); err != nil {
		return nil, err
	}
	if err := uc.discountRepo.Create(ctx, discount); err != nil {
		return nil, err
	}
	return discount, nil
}

func (uc *CatalogUseCase) GetDiscount(ctx context.Context, id string) (*domain.Discount, error) {
	return uc.discountRepo.GetByID(ctx, id)
}

func (uc *CatalogUseCase) ListDiscounts(ctx context.Context, limit, offset int) ([]*domain.Discount, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.discountRepo.List(ctx, limit, offset)
}

func (uc *CatalogUseCase) SetDiscountActive(ctx context.Context, id string, active bool) (*domain.Discount, error) {
	discount, err := uc.discountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	discount.Active = active
	discount.UpdatedAt = uc.clock.Now()
	if err := uc.discountRepo.Update(ctx, discount); err != nil {
		return nil, err
	}
	return discount, nil
}

// CreateStudentInput represents input for registering a student.
type CreateStudentInput struct {
	Name     string
	Document string
	Email    string
	Phone    string
}

func (uc *CatalogUseCase) CreateStudent(ctx context.Context, input CreateStudentInput) (*domain.Student, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	name, err := domain.RequireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	if input.Email != "" {
		if err := domain.ValidateEmail(input.Email); err != nil {
			return nil, err
		}
	}
	student := &domain.Student{
		ID:        uc.idGen.Generate(),
		TenantID:  tenantID,
		Name:      name,
		Document:  strings.TrimSpace(input.Document),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Active:    true,
		CreatedAt: uc.clock.Now(),
	}
	if err := uc.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

func (uc *CatalogUseCase) GetStudent(ctx context.Context, id string) (*domain.Student, error) {
	return uc.studentRepo.GetByID(ctx, id)
}

func (uc *CatalogUseCase) ListStudents(ctx context.Context, limit, offset int) ([]*domain.Student, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.studentRepo.List(ctx, limit, offset)
}

// CreateEmployeeInput represents input for registering an employee.
type CreateEmployeeInput struct {
	Name     string
	Document string
	Role     string
}

func (uc *CatalogUseCase) CreateEmployee(ctx context.Context, input CreateEmployeeInput) (*domain.Employee, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	name, err := domain.RequireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	employee := &domain.Employee{
		ID:        uc.idGen.Generate(),
		TenantID:  tenantID,
		Name:      name,
		Document:  strings.TrimSpace(input.Document),
		Role:      strings.TrimSpace(input.Role),
		Active:    true,
		CreatedAt: uc.clock.Now(),
	}
	if err := uc.employeeRepo.Create(ctx, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (uc *CatalogUseCase) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	return uc.employeeRepo.GetByID(ctx, id)
}

func (uc *CatalogUseCase) ListEmployees(ctx context.Context, limit, offset int) ([]*domain.Employee, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.employeeRepo.List(ctx, limit, offset)
}

// CreateClassInput represents input for creating a class.
type CreateClassInput struct {
	Name     string
	Schedule string
	Capacity int
}

func (uc *CatalogUseCase) CreateClass(ctx context.Context, input CreateClassInput) (*domain.Class, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	name, err := domain.RequireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	if input.Capacity < 0 {
		return nil, domain.NewValidationError("capacity cannot be negative")
	}
	class := &domain.Class{
		ID:        uc.idGen.Generate(),
		TenantID:  tenantID,
		Name:      name,
		Schedule:  strings.TrimSpace(input.Schedule),
		Capacity:  input.Capacity,
		Active:    true,
		CreatedAt: uc.clock.Now(),
	}
	if err := uc.classRepo.Create(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

func (uc *CatalogUseCase) GetClass(ctx context.Context, id string) (*domain.Class, error) {
	return uc.classRepo.GetByID(ctx, id)
}

func (uc *CatalogUseCase) ListClasses(ctx context.Context, limit, offset int) ([]*domain.Class, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.classRepo.List(ctx, limit, offset)
}
