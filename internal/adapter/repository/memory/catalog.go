package memory

import (
	"context"
	"sort"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

func clonePlan(p *domain.Plan) *domain.Plan {
	c := *p
	c.MonthCount = clonePtr(p.MonthCount)
	c.DayCount = clonePtr(p.DayCount)
	return &c
}

// PlanRepository implements usecase.PlanRepository.
type PlanRepository struct {
	s *Store
}

func NewPlanRepository(s *Store) *PlanRepository {
	return &PlanRepository{s: s}
}

func (r *PlanRepository) Create(ctx context.Context, tx usecase.Transaction, plan *domain.Plan) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		c := clonePlan(plan)
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.plans, c.ID, c), nil
	})
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.plans[id]
	if !ok || p.TenantID != tenantID {
		return nil, domain.ErrPlanNotFound
	}
	return clonePlan(p), nil
}

func (r *PlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		if p, ok := r.s.plans[plan.ID]; !ok || p.TenantID != tenantID {
			return nil, domain.ErrPlanNotFound
		}
		c := clonePlan(plan)
		c.TenantID = tenantID
		return put(r.s.plans, c.ID, c), nil
	})
}

func (r *PlanRepository) List(ctx context.Context, limit, offset int) ([]*domain.Plan, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Plan, 0)
	for _, p := range r.s.plans {
		if p.TenantID == tenantID {
			result = append(result, clonePlan(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return page(result, limit, offset), nil
}

// DiscountRepository implements usecase.DiscountRepository.
type DiscountRepository struct {
	s *Store
}

func NewDiscountRepository(s *Store) *DiscountRepository {
	return &DiscountRepository{s: s}
}

func (r *DiscountRepository) Create(ctx context.Context, discount *domain.Discount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		c := *discount
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.discounts, c.ID, &c), nil
	})
}

func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.discounts[id]
	if !ok || d.TenantID != tenantID {
		return nil, domain.ErrDiscountNotFound
	}
	c := *d
	return &c, nil
}

func (r *DiscountRepository) Update(ctx context.Context, discount *domain.Discount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		if d, ok := r.s.discounts[discount.ID]; !ok || d.TenantID != tenantID {
			return nil, domain.ErrDiscountNotFound
		}
		c := *discount
		c.TenantID = tenantID
		return put(r.s.discounts, c.ID, &c), nil
	})
}

func (r *DiscountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Discount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Discount, 0)
	for _, d := range r.s.discounts {
		if d.TenantID == tenantID {
			c := *d
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return page(result, limit, offset), nil
}

// StudentRepository implements usecase.StudentRepository.
type StudentRepository struct {
	s *Store
}

func NewStudentRepository(s *Store) *StudentRepository {
	return &StudentRepository{s: s}
}

func (r *StudentRepository) Create(ctx context.Context, student *domain.Student) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		c := *student
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.students, c.ID, &c), nil
	})
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.students[id]
	if !ok || st.TenantID != tenantID {
		return nil, domain.ErrStudentNotFound
	}
	c := *st
	return &c, nil
}

func (r *StudentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Student, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Student, 0)
	for _, st := range r.s.students {
		if st.TenantID == tenantID {
			c := *st
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return page(result, limit, offset), nil
}

// EmployeeRepository implements usecase.EmployeeRepository.
type EmployeeRepository struct {
	s *Store
}

func NewEmployeeRepository(s *Store) *EmployeeRepository {
	return &EmployeeRepository{s: s}
}

func (r *EmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		c := *employee
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.employees, c.ID, &c), nil
	})
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.employees[id]
	if !ok || e.TenantID != tenantID {
		return nil, domain.ErrEmployeeNotFound
	}
	c := *e
	return &c, nil
}

func (r *EmployeeRepository) List(ctx context.Context, limit, offset int) ([]*domain.Employee, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Employee, 0)
	for _, e := range r.s.employees {
		if e.TenantID == tenantID {
			c := *e
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return page(result, limit, offset), nil
}

// ClassRepository implements usecase.ClassRepository.
type ClassRepository struct {
	s *Store
}

func NewClassRepository(s *Store) *ClassRepository {
	return &ClassRepository{s: s}
}

func (r *ClassRepository) Create(ctx context.Context, class *domain.Class) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		c := *class
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.classes, c.ID, &c), nil
	})
}

func (r *ClassRepository) GetByID(ctx context.Context, id string) (*domain.Class, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cl, ok := r.s.classes[id]
	if !ok || cl.TenantID != tenantID {
		return nil, domain.ErrClassNotFound
	}
	c := *cl
	return &c, nil
}

func (r *ClassRepository) List(ctx context.Context, limit, offset int) ([]*domain.Class, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Class, 0)
	for _, cl := range r.s.classes {
		if cl.TenantID == tenantID {
			c := *cl
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return page(result, limit, offset), nil
}
