package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// BillingAccountRepository implements usecase.BillingAccountRepository.
type BillingAccountRepository struct {
	s *Store
}

func NewBillingAccountRepository(s *Store) *BillingAccountRepository {
	return &BillingAccountRepository{s: s}
}

func cloneAccount(a *domain.BillingAccount) *domain.BillingAccount {
	c := *a
	c.PaidAt = clonePtr(a.PaidAt)
	return &c
}

// billedConflict must be called with mu held.
func (r *BillingAccountRepository) billedConflict(a *domain.BillingAccount) bool {
	if a.EnrollmentID == nil || a.PeriodKey == nil || a.Status == domain.StatusCancelled {
		return false
	}
	for _, other := range r.s.accounts {
		if other.ID == a.ID || other.TenantID != a.TenantID || other.Status == domain.StatusCancelled {
			continue
		}
		if other.EnrollmentID != nil && other.PeriodKey != nil &&
			*other.EnrollmentID == *a.EnrollmentID && *other.PeriodKey == *a.PeriodKey {
			return true
		}
	}
	return false
}

func (r *BillingAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.BillingAccount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		c := cloneAccount(account)
		c.TenantID = tenantID
		if r.billedConflict(c) {
			return nil, domain.ErrAlreadyBilled
		}
		r.s.touchTenant(tenantID)
		return put(r.s.accounts, c.ID, c), nil
	})
}

// find must be called with mu held.
func (r *BillingAccountRepository) find(tenantID, id string) (*domain.BillingAccount, error) {
	a, ok := r.s.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (r *BillingAccountRepository) GetByID(ctx context.Context, id string) (*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, err := r.find(tenantID, id)
	if err != nil {
		return nil, err
	}
	return cloneAccount(a), nil
}

func (r *BillingAccountRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.BillingAccount, error) {
	return r.GetByID(ctx, id)
}

func (r *BillingAccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.BillingAccount) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if _, err := r.find(tenantID, account.ID); err != nil {
			return nil, err
		}
		c := cloneAccount(account)
		c.TenantID = tenantID
		if r.billedConflict(c) {
			return nil, domain.ErrAlreadyBilled
		}
		return put(r.s.accounts, c.ID, c), nil
	})
}

func (r *BillingAccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if _, err := r.find(tenantID, id); err != nil {
			return nil, err
		}
		return remove(r.s.accounts, id), nil
	})
}

func matchesAccount(a *domain.BillingAccount, f domain.AccountFilter) bool {
	switch {
	case f.Kind != "" && a.Kind != f.Kind:
		return false
	case f.Status != nil && a.Status != *f.Status:
		return false
	case f.StudentID != nil && (a.StudentID == nil || *a.StudentID != *f.StudentID):
		return false
	case f.EnrollmentID != nil && (a.EnrollmentID == nil || *a.EnrollmentID != *f.EnrollmentID):
		return false
	case f.Category != nil && a.Category != *f.Category:
		return false
	case f.DueFrom != nil && a.DueDate.Before(*f.DueFrom):
		return false
	case f.DueTo != nil && a.DueDate.After(*f.DueTo):
		return false
	}
	return true
}

func sortAccounts(list []*domain.BillingAccount) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].DueDate.Equal(list[j].DueDate) {
			return list[i].DueDate.Before(list[j].DueDate)
		}
		return list[i].Number < list[j].Number
	})
}

func (r *BillingAccountRepository) List(ctx context.Context, filter domain.AccountFilter, limit, offset int) ([]*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.BillingAccount, 0)
	for _, a := range r.s.accounts {
		if a.TenantID == tenantID && matchesAccount(a, filter) {
			result = append(result, cloneAccount(a))
		}
	}
	sortAccounts(result)
	return page(result, limit, offset), nil
}

func (r *BillingAccountRepository) ListByEnrollment(ctx context.Context, _ usecase.Transaction, enrollmentID string) ([]*domain.BillingAccount, error) {
	return r.List(ctx, domain.AccountFilter{EnrollmentID: &enrollmentID}, 0, 0)
}

func (r *BillingAccountRepository) FindByEnrollmentPeriod(ctx context.Context, enrollmentID, periodKey string) (*domain.BillingAccount, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if a.TenantID != tenantID || a.Kind != domain.KindReceivable || a.Status == domain.StatusCancelled {
			continue
		}
		if a.EnrollmentID != nil && a.PeriodKey != nil && *a.EnrollmentID == enrollmentID && *a.PeriodKey == periodKey {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *BillingAccountRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, a := range r.s.accounts {
		if a.TenantID != tenantID {
			continue
		}
		c := cloneAccount(a)
		if c.MarkOverdue(today) {
			r.s.accounts[id] = c
			n++
		}
	}
	return n, nil
}

func (r *BillingAccountRepository) TotalsByCategory(ctx context.Context, kind domain.AccountKind, from, to time.Time) ([]domain.CategoryTotal, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byCategory := make(map[string]*domain.CategoryTotal)
	for _, a := range r.s.accounts {
		if a.TenantID != tenantID || a.Kind != kind || a.Status == domain.StatusCancelled {
			continue
		}
		if a.DueDate.Before(from) || a.DueDate.After(to) {
			continue
		}
		t, ok := byCategory[a.Category]
		if !ok {
			t = &domain.CategoryTotal{Category: a.Category, Total: decimal.Zero, Paid: decimal.Zero, Remaining: decimal.Zero}
			byCategory[a.Category] = t
		}
		t.Total = t.Total.Add(a.FinalAmount)
		t.Paid = t.Paid.Add(a.PaidAmount)
		t.Remaining = t.Remaining.Add(a.RemainingAmount)
		t.Count++
	}

	result := make([]domain.CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}
