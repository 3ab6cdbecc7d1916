package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/iho/gymledger/internal/domain"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	s *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		for _, u := range r.s.users {
			if strings.EqualFold(u.Email, user.Email) {
				return nil, domain.ErrUserAlreadyExists
			}
		}
		c := *user
		c.TenantID = tenantID
		r.s.touchTenant(tenantID)
		return put(r.s.users, c.ID, &c), nil
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return err
	}
	return r.s.write(nil, func() (func(), error) {
		existing, ok := r.s.users[user.ID]
		if !ok || existing.TenantID != tenantID {
			return nil, domain.ErrUserNotFound
		}
		c := *user
		c.TenantID = tenantID
		return put(r.s.users, c.ID, &c), nil
	})
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.User, 0)
	for _, u := range r.s.users {
		if u.TenantID == tenantID {
			c := *u
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return page(result, limit, offset), nil
}
