package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/infrastructure/auth"
	"github.com/iho/gymledger/internal/usecase"
)

type authenticatorStub struct {
	fn func(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error)
}

func (s *authenticatorStub) Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error) {
	return s.fn(ctx, input)
}

func TestAuthHandler_Login(t *testing.T) {
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	h := NewAuthHandler(&authenticatorStub{
		fn: func(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error) {
			if input.Email != "owner@gym.test" || input.Password != "s3cret" {
				return nil, domain.ErrUnauthorized
			}
			return &domain.User{ID: "u-1", TenantID: "gym-1", Email: input.Email, Role: domain.RoleAdmin, Active: true}, nil
		},
	}, jwt, 3600)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"owner@gym.test","password":"s3cret"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[dto.LoginResponse](t, rec)
	if resp.ExpiresIn != 3600 || resp.User.TenantID != "gym-1" {
		t.Fatalf("unexpected response %+v", resp)
	}

	claims, err := jwt.Verify(resp.Token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if u := claims.User(); u.TenantID != "gym-1" || u.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims user %+v", u)
	}
}

func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	h := NewAuthHandler(&authenticatorStub{
		fn: func(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error) {
			return nil, domain.ErrUnauthorized
		},
	}, auth.NewJWTManager("test-secret", time.Hour), 3600)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.co","password":"nope"}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

type failingIssuer struct{}

func (failingIssuer) Generate(*domain.User) (string, error) { return "", errors.New("signing failed") }

func TestAuthHandler_Login_TokenFailure(t *testing.T) {
	h := NewAuthHandler(&authenticatorStub{
		fn: func(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error) {
			return &domain.User{ID: "u-1", TenantID: "gym-1"}, nil
		},
	}, failingIssuer{}, 60)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.co","password":"x"}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	h := NewAuthHandler(nil, nil, 0)

	rec := httptest.NewRecorder()
	h.GetCurrentUser(rec, newRequest(t, http.MethodGet, "/auth/me", nil, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decodeBody[dto.UserResponse](t, rec); resp.ID != "u-1" || resp.Role != "manager" {
		t.Fatalf("unexpected user %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.GetCurrentUser(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
