package memory

import (
	"context"
	"sort"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// CashRegisterRepository implements usecase.CashRegisterRepository.
type CashRegisterRepository struct {
	s *Store
}

func NewCashRegisterRepository(s *Store) *CashRegisterRepository {
	return &CashRegisterRepository{s: s}
}

func cloneRegister(r *domain.CashRegister) *domain.CashRegister {
	c := *r
	c.ClosingCount = clonePtr(r.ClosingCount)
	c.Variance = clonePtr(r.Variance)
	c.ClosedAt = clonePtr(r.ClosedAt)
	c.Movements = nil
	return &c
}

func cloneMovement(m *domain.Movement) *domain.Movement {
	c := *m
	c.ReceivableID = clonePtr(m.ReceivableID)
	c.PayableID = clonePtr(m.PayableID)
	return &c
}

func (r *CashRegisterRepository) Create(ctx context.Context, tx usecase.Transaction, register *domain.CashRegister) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if register.Status == domain.RegisterOpen {
			for _, existing := range r.s.registers {
				if existing.TenantID == tenantID && existing.Status == domain.RegisterOpen {
					return nil, domain.ErrRegisterAlreadyOpen
				}
			}
		}
		c := cloneRegister(register)
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.registers, c.ID, c), nil
	})
}

// find must be called with mu held.
func (r *CashRegisterRepository) find(tenantID, id string) (*domain.CashRegister, error) {
	reg, ok := r.s.registers[id]
	if !ok || reg.TenantID != tenantID {
		return nil, domain.ErrRegisterNotFound
	}
	return reg, nil
}

// findOpen must be called with mu held.
func (r *CashRegisterRepository) findOpen(tenantID string) (*domain.CashRegister, error) {
	for _, reg := range r.s.registers {
		if reg.TenantID == tenantID && reg.Status == domain.RegisterOpen {
			return reg, nil
		}
	}
	return nil, domain.ErrRegisterNotFound
}

// withMovements must be called with mu held.
func (r *CashRegisterRepository) withMovements(reg *domain.CashRegister) *domain.CashRegister {
	c := cloneRegister(reg)
	list := r.s.movements[reg.ID]
	c.Movements = make([]domain.Movement, 0, len(list))
	for _, m := range list {
		c.Movements = append(c.Movements, *cloneMovement(m))
	}
	return c
}

func (r *CashRegisterRepository) GetByID(ctx context.Context, id string) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reg, err := r.find(tenantID, id)
	if err != nil {
		return nil, err
	}
	return r.withMovements(reg), nil
}

func (r *CashRegisterRepository) GetOpen(ctx context.Context) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reg, err := r.findOpen(tenantID)
	if err != nil {
		return nil, err
	}
	return r.withMovements(reg), nil
}

func (r *CashRegisterRepository) GetByIDForUpdate(ctx context.Context, _ usecase.Transaction, id string) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reg, err := r.find(tenantID, id)
	if err != nil {
		return nil, err
	}
	return cloneRegister(reg), nil
}

func (r *CashRegisterRepository) GetOpenForUpdate(ctx context.Context, _ usecase.Transaction) (*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reg, err := r.findOpen(tenantID)
	if err != nil {
		return nil, err
	}
	return cloneRegister(reg), nil
}

func (r *CashRegisterRepository) Update(ctx context.Context, tx usecase.Transaction, register *domain.CashRegister) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if _, err := r.find(tenantID, register.ID); err != nil {
			return nil, err
		}
		c := cloneRegister(register)
		c.TenantID = tenantID
		return put(r.s.registers, c.ID, c), nil
	})
}

func (r *CashRegisterRepository) AddMovement(ctx context.Context, tx usecase.Transaction, movement *domain.Movement) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if _, err := r.find(tenantID, movement.RegisterID); err != nil {
			return nil, err
		}
		prev := r.s.movements[movement.RegisterID]
		next := make([]*domain.Movement, len(prev), len(prev)+1)
		copy(next, prev)
		next = append(next, cloneMovement(movement))
		return put(r.s.movements, movement.RegisterID, next), nil
	})
}

func (r *CashRegisterRepository) GetMovement(ctx context.Context, _ usecase.Transaction, registerID, movementID string) (*domain.Movement, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, err := r.find(tenantID, registerID); err != nil {
		return nil, err
	}
	for _, m := range r.s.movements[registerID] {
		if m.ID == movementID {
			return cloneMovement(m), nil
		}
	}
	return nil, domain.ErrMovementNotFound
}

func (r *CashRegisterRepository) DeleteMovement(ctx context.Context, tx usecase.Transaction, registerID, movementID string) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(tx, func() (func(), error) {
		if _, err := r.find(tenantID, registerID); err != nil {
			return nil, err
		}
		prev := r.s.movements[registerID]
		next := make([]*domain.Movement, 0, len(prev))
		for _, m := range prev {
			if m.ID != movementID {
				next = append(next, m)
			}
		}
		if len(next) == len(prev) {
			return nil, domain.ErrMovementNotFound
		}
		return put(r.s.movements, registerID, next), nil
	})
}

func (r *CashRegisterRepository) List(ctx context.Context, filter domain.RegisterFilter, limit, offset int) ([]*domain.CashRegister, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.CashRegister, 0)
	for _, reg := range r.s.registers {
		if reg.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && reg.Status != *filter.Status {
			continue
		}
		if filter.From != nil && reg.OpenedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && reg.OpenedAt.After(*filter.To) {
			continue
		}
		result = append(result, cloneRegister(reg))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OpenedAt.Equal(result[j].OpenedAt) {
			return result[i].OpenedAt.After(result[j].OpenedAt)
		}
		return result[i].Number > result[j].Number
	})
	return page(result, limit, offset), nil
}
