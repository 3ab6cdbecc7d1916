package usecase_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/gymledger/internal/adapter/repository/memory"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
	"github.com/iho/gymledger/internal/usecase/mocks"
)

func newUserUseCase(repo usecase.UserRepository, audit usecase.AuditRepository) *usecase.UserUseCase {
	return usecase.NewUserUseCase(repo, audit, mocks.NewSequentialIDs("user"), mocks.NewStubClock(testNow))
}

func tenantCtx() context.Context {
	return domain.WithTenant(context.Background(), testTenant)
}

func TestUserUseCase_CreateUser_Success(t *testing.T) {
	t.Parallel()

	var stored *domain.User
	repo := mocks.NewMockUserRepository()
	repo.CreateFunc = func(_ context.Context, user *domain.User) error {
		if user.HashedPassword == "" {
			t.Fatal("expected user to be persisted with hashed password")
		}
		c := *user
		stored = &c
		return nil
	}

	uc := newUserUseCase(repo, nil)
	user, err := uc.CreateUser(tenantCtx(), usecase.CreateUserInput{
		Email:    " Alice@Example.com ",
		Name:     "Alice",
		Password: "StrongPass1",
		Role:     domain.RoleManager,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored == nil {
		t.Fatal("expected user to be stored")
	}
	if stored.TenantID != testTenant || stored.Email != "alice@example.com" {
		t.Fatalf("unexpected stored user %+v", stored)
	}
	if user.HashedPassword != "" {
		t.Fatal("expected returned user to hide hashed password")
	}
}

func TestUserUseCase_CreateUser_ValidationErrors(t *testing.T) {
	t.Parallel()

	uc := newUserUseCase(mocks.NewMockUserRepository(), nil)

	tests := []struct {
		name  string
		input usecase.CreateUserInput
	}{
		{"invalid email", usecase.CreateUserInput{Email: "invalid-email", Password: "StrongPass1", Role: domain.RoleAdmin}},
		{"weak password", usecase.CreateUserInput{Email: "user@example.com", Password: "weak", Role: domain.RoleAdmin}},
		{"invalid role", usecase.CreateUserInput{Email: "user@example.com", Password: "StrongPass1", Role: "owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateUser(tenantCtx(), tt.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	_, err := uc.CreateUser(context.Background(), usecase.CreateUserInput{Email: "user@example.com", Password: "StrongPass1", Role: domain.RoleAdmin})
	if !errors.Is(err, domain.ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant, got %v", err)
	}
}

func TestUserUseCase_CreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	repo.GetByEmailFunc = func(context.Context, string) (*domain.User, error) {
		return &domain.User{ID: "existing"}, nil
	}

	uc := newUserUseCase(repo, nil)
	_, err := uc.CreateUser(tenantCtx(), usecase.CreateUserInput{
		Email:    "user@example.com",
		Name:     "Bob",
		Password: "StrongPass1",
		Role:     domain.RoleStaff,
	})
	if !errors.Is(err, domain.ErrUserAlreadyExists) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate email conflict, got %v", err)
	}
}

func TestUserUseCase_CreateUser_RepositoryFailure(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	repo.GetByEmailFunc = func(context.Context, string) (*domain.User, error) {
		return nil, errors.New("connection refused")
	}

	uc := newUserUseCase(repo, nil)
	_, err := uc.CreateUser(tenantCtx(), usecase.CreateUserInput{Email: "user@example.com", Password: "StrongPass1", Role: domain.RoleStaff})
	if err == nil || errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("expected the lookup failure to surface, got %v", err)
	}
}

func TestUserUseCase_Authenticate(t *testing.T) {
	t.Parallel()

	hashed, err := bcrypt.GenerateFromPassword([]byte("StrongPass1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	repo := mocks.NewMockUserRepository()
	if err := repo.Create(context.Background(), &domain.User{
		ID:             "user-1",
		TenantID:       testTenant,
		Email:          "user@example.com",
		HashedPassword: string(hashed),
		Role:           domain.RoleStaff,
		Active:         true,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := memory.New()
	audit := memory.NewAuditRepository(store)

	uc := newUserUseCase(repo, audit)
	user, err := uc.Authenticate(context.Background(), usecase.AuthenticateInput{
		Email:    "USER@example.com",
		Password: "StrongPass1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" || user.TenantID != testTenant {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.HashedPassword != "" {
		t.Fatal("expected returned user to hide hashed password")
	}

	logs, err := audit.List(tenantCtx(), domain.AuditFilter{})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != string(domain.AuditActionUserLogin) || logs[0].ResourceID != "user-1" {
		t.Fatalf("expected one login audit entry, got %+v", logs)
	}
}

func TestUserUseCase_AuthenticateErrors(t *testing.T) {
	t.Parallel()

	hashed, err := bcrypt.GenerateFromPassword([]byte("StrongPass1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := domain.User{Email: "user@example.com", HashedPassword: string(hashed)}
	repo := mocks.NewMockUserRepository()
	uc := newUserUseCase(repo, nil)

	tests := []struct {
		name     string
		lookup   func(context.Context, string) (*domain.User, error)
		password string
	}{
		{
			name:     "inactive",
			lookup:   func(context.Context, string) (*domain.User, error) { c := user; return &c, nil },
			password: "StrongPass1",
		},
		{
			name: "wrong password",
			lookup: func(context.Context, string) (*domain.User, error) {
				c := user
				c.Active = true
				return &c, nil
			},
			password: "WrongPass1",
		},
		{
			name:     "unknown email",
			lookup:   func(context.Context, string) (*domain.User, error) { return nil, domain.ErrUserNotFound },
			password: "StrongPass1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.GetByEmailFunc = tt.lookup
			_, err := uc.Authenticate(context.Background(), usecase.AuthenticateInput{Email: "user@example.com", Password: tt.password})
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestUserUseCase_GetUser(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	repo.GetByIDFunc = func(context.Context, string) (*domain.User, error) {
		return &domain.User{ID: "user-1", HashedPassword: "secret"}, nil
	}

	uc := newUserUseCase(repo, nil)
	user, err := uc.GetUser(tenantCtx(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.HashedPassword != "" {
		t.Fatal("expected hashed password to be hidden")
	}
}

func TestUserUseCase_UpdateUser(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	if err := repo.Create(context.Background(), &domain.User{
		ID: "user-1", Name: "Alice", Role: domain.RoleStaff, Active: true, HashedPassword: "old",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	newName := "Bob"
	newRole := domain.RoleManager
	active := false
	newPassword := "NewStrong1"

	uc := newUserUseCase(repo, nil)
	user, err := uc.UpdateUser(tenantCtx(), usecase.UpdateUserInput{
		ID:       "user-1",
		Name:     &newName,
		Role:     &newRole,
		Active:   &active,
		Password: &newPassword,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := repo.GetByID(context.Background(), "user-1")
	if updated.Name != newName || updated.Role != newRole || updated.Active != active {
		t.Fatalf("unexpected updated fields: %+v", updated)
	}
	if updated.HashedPassword == "old" {
		t.Fatal("expected password to be rehashed")
	}
	if !updated.UpdatedAt.Equal(testNow) {
		t.Fatalf("expected updated_at from the clock, got %s", updated.UpdatedAt)
	}
	if user.HashedPassword != "" {
		t.Fatal("expected masked password in response")
	}
}

func TestUserUseCase_UpdateUser_Rejects(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	if err := repo.Create(context.Background(), &domain.User{ID: "user-1", Role: domain.RoleStaff}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	uc := newUserUseCase(repo, nil)

	invalidRole := domain.Role("owner")
	if _, err := uc.UpdateUser(tenantCtx(), usecase.UpdateUserInput{ID: "user-1", Role: &invalidRole}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for role, got %v", err)
	}

	weak := "weak"
	if _, err := uc.UpdateUser(tenantCtx(), usecase.UpdateUserInput{ID: "user-1", Password: &weak}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for password, got %v", err)
	}

	if _, err := uc.UpdateUser(tenantCtx(), usecase.UpdateUserInput{ID: "ghost"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserUseCase_ListUsers(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockUserRepository()
	var gotLimit int
	repo.ListFunc = func(_ context.Context, limit, _ int) ([]*domain.User, error) {
		gotLimit = limit
		return []*domain.User{{ID: "u1", HashedPassword: "x"}, {ID: "u2", HashedPassword: "y"}}, nil
	}

	uc := newUserUseCase(repo, nil)
	users, err := uc.ListUsers(tenantCtx(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != domain.DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", domain.DefaultPageSize, gotLimit)
	}
	for _, u := range users {
		if u.HashedPassword != "" {
			t.Fatalf("expected password hidden for %s", u.ID)
		}
	}
}
