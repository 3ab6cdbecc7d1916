package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

type userServiceStub struct {
	UserService

	createFn func(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error)
	updateFn func(ctx context.Context, input usecase.UpdateUserInput) (*domain.User, error)
}

func (s *userServiceStub) CreateUser(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, input)
}

func (s *userServiceStub) UpdateUser(ctx context.Context, input usecase.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, input)
}

func TestUserHandler_Create(t *testing.T) {
	h := NewUserHandler(&userServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
			return &domain.User{ID: "u-2", TenantID: testTenant, Email: input.Email, Role: input.Role, Active: true}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/users", `{"email":"desk@gym.test","password":"longpassword","role":"staff"}`, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeBody[dto.UserResponse](t, rec); resp.Role != "staff" || resp.TenantID != testTenant {
		t.Fatalf("unexpected %+v", resp)
	}
}

func TestUserHandler_Create_Duplicate(t *testing.T) {
	h := NewUserHandler(&userServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateUserInput) (*domain.User, error) {
			return nil, domain.ErrUserAlreadyExists
		},
	})

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/users", `{"email":"desk@gym.test","password":"longpassword","role":"staff"}`, nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestUserHandler_Update(t *testing.T) {
	var captured usecase.UpdateUserInput
	h := NewUserHandler(&userServiceStub{
		updateFn: func(ctx context.Context, input usecase.UpdateUserInput) (*domain.User, error) {
			captured = input
			return &domain.User{ID: input.ID, Active: false}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPatch, "/users/u-2", `{"active":false}`, map[string]string{"id": "u-2"}))

	if rec.Code != http.StatusOK || captured.ID != "u-2" || captured.Active == nil || *captured.Active {
		t.Fatalf("unexpected %d %+v", rec.Code, captured)
	}
}
