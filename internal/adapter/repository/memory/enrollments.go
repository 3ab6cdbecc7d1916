package memory

import (
	"context"
	"sort"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// EnrollmentRepository implements usecase.EnrollmentRepository.
type EnrollmentRepository struct {
	s *Store
}

func NewEnrollmentRepository(s *Store) *EnrollmentRepository {
	return &EnrollmentRepository{s: s}
}

func cloneEnrollment(e *domain.Enrollment) *domain.Enrollment {
	c := *e
	c.ClassID = clonePtr(e.ClassID)
	c.DiscountID = clonePtr(e.DiscountID)
	c.DueDay = clonePtr(e.DueDay)
	return &c
}

func (r *EnrollmentRepository) Create(ctx context.Context, tx usecase.Transaction, enrollment *domain.Enrollment) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		c := cloneEnrollment(enrollment)
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.enrollments, c.ID, c), nil
	})
}

func (r *EnrollmentRepository) find(tenantID, id string) (*domain.Enrollment, error) {
	e, ok := r.s.enrollments[id]
	if !ok || e.TenantID != tenantID {
		return nil, domain.ErrEnrollmentNotFound
	}
	return e, nil
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, err := r.find(tenantID, id)
	if err != nil {
		return nil, err
	}
	return cloneEnrollment(e), nil
}

func (r *EnrollmentRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.Enrollment, error) {
	return r.GetByID(ctx, id)
}

func (r *EnrollmentRepository) Update(ctx context.Context, tx usecase.Transaction, enrollment *domain.Enrollment) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if _, err := r.find(tenantID, enrollment.ID); err != nil {
			return nil, err
		}
		c := cloneEnrollment(enrollment)
		c.TenantID = tenantID
		return put(r.s.enrollments, c.ID, c), nil
	})
}

func (r *EnrollmentRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if _, err := r.find(tenantID, id); err != nil {
			return nil, err
		}
		return remove(r.s.enrollments, id), nil
	})
}

func (r *EnrollmentRepository) List(ctx context.Context, filter domain.EnrollmentFilter, limit, offset int) ([]*domain.Enrollment, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Enrollment, 0)
	for _, e := range r.s.enrollments {
		switch {
		case e.TenantID != tenantID:
			continue
		case filter.Status != nil && e.Status != *filter.Status:
			continue
		case filter.StudentID != nil && e.StudentID != *filter.StudentID:
			continue
		case filter.PlanID != nil && e.PlanID != *filter.PlanID:
			continue
		}
		result = append(result, cloneEnrollment(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return page(result, limit, offset), nil
}

func (r *EnrollmentRepository) ListBillable(ctx context.Context) ([]domain.BillableEnrollment, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.BillableEnrollment, 0)
	for _, e := range r.s.enrollments {
		if e.TenantID != tenantID || e.Status != domain.EnrollmentActive || e.DueDay == nil {
			continue
		}
		plan, ok := r.s.plans[e.PlanID]
		if !ok || plan.TenantID != tenantID || plan.ChargeType != domain.ChargeRecurring {
			continue
		}
		result = append(result, domain.BillableEnrollment{Enrollment: cloneEnrollment(e), Plan: clonePlan(plan)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Enrollment.Code < result[j].Enrollment.Code })
	return result, nil
}
