package handler

import (
	"context"
	"net/http"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// Authenticator verifies user credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*domain.User, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(user *domain.User) (string, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users     Authenticator
	tokens    TokenIssuer
	expiresIn int64
}

// NewAuthHandler creates a new auth handler. expiresIn is the token lifetime in seconds.
func NewAuthHandler(users Authenticator, tokens TokenIssuer, expiresIn int64) *AuthHandler {
	return &AuthHandler{
		users:     users,
		tokens:    tokens,
		expiresIn: expiresIn,
	}
}

// Login verifies credentials and returns a signed token scoped to the user's tenant.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), usecase.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials", "")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		respondError(w, r, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     token,
		ExpiresIn: h.expiresIn,
		User:      dto.UserFromDomain(user),
	})
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := domain.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
