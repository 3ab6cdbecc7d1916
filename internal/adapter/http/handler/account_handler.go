package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	Create(ctx context.Context, input usecase.CreateAccountInput) (*domain.BillingAccount, error)
	CreateInstallments(ctx context.Context, input usecase.InstallmentInput) ([]*domain.BillingAccount, error)
	RegisterPayment(ctx context.Context, accountID string, input usecase.PaymentInput) (*usecase.PaymentResult, error)
	Cancel(ctx context.Context, accountID, reason string) (*domain.BillingAccount, error)
	Update(ctx context.Context, accountID string, patch domain.AccountPatch) (*domain.BillingAccount, error)
	Delete(ctx context.Context, accountID string) error
	Get(ctx context.Context, accountID string) (*domain.BillingAccount, error)
	List(ctx context.Context, filter domain.AccountFilter, limit, offset int) ([]*domain.BillingAccount, error)
	TotalsByCategory(ctx context.Context, kind domain.AccountKind, from, to time.Time) (*domain.CategoryTotals, error)
}

// AccountHandler handles receivable or payable HTTP requests. One instance serves one kind.
type AccountHandler struct {
	accounts AccountService
	kind     domain.AccountKind
}

// NewAccountHandler creates a new AccountHandler for the given kind.
func NewAccountHandler(accounts AccountService, kind domain.AccountKind) *AccountHandler {
	return &AccountHandler{accounts: accounts, kind: kind}
}

// Create creates a single obligation.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), req.ToUseCaseInput(h.kind))
	if err != nil {
		respondError(w, r, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// CreateInstallments splits a payable into monthly installments.
func (h *AccountHandler) CreateInstallments(w http.ResponseWriter, r *http.Request) {
	if h.kind != domain.KindPayable {
		writeError(w, http.StatusNotFound, "installments are only available for payables", "")
		return
	}
	var req dto.InstallmentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	accounts, err := h.accounts.CreateInstallments(r.Context(), req.ToUseCaseInput())
	if err != nil {
		respondError(w, r, "failed to create installments", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewList(accounts, dto.AccountFromDomain, len(accounts), 0))
}

// Get retrieves an obligation by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists obligations of the handler's kind.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	filter := domain.AccountFilter{
		Kind:         h.kind,
		StudentID:    stringQuery(r, "student_id"),
		EnrollmentID: stringQuery(r, "enrollment_id"),
		Category:     stringQuery(r, "category"),
	}
	if s := stringQuery(r, "status"); s != nil {
		status := domain.AccountStatus(*s)
		filter.Status = &status
	}
	var err error
	if filter.DueFrom, err = dateQuery(r, "due_from"); err != nil {
		respondError(w, r, "invalid filter", err)
		return
	}
	if filter.DueTo, err = dateQuery(r, "due_to"); err != nil {
		respondError(w, r, "invalid filter", err)
		return
	}

	accounts, err := h.accounts.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, r, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewList(accounts, dto.AccountFromDomain, limit, offset))
}

// Pay registers a payment and the matching register movement.
func (h *AccountHandler) Pay(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.accounts.RegisterPayment(r.Context(), account.ID, req.ToUseCaseInput())
	if err != nil {
		respondError(w, r, "failed to register payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentFromUseCase(result))
}

// Cancel cancels an unpaid obligation.
func (h *AccountHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}
	var req dto.CancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cancelled, err := h.accounts.Cancel(r.Context(), account.ID, req.Reason)
	if err != nil {
		respondError(w, r, "failed to cancel account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(cancelled))
}

// Update patches a PENDING or OVERDUE obligation.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}
	var req dto.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.accounts.Update(r.Context(), account.ID, req.ToPatch())
	if err != nil {
		respondError(w, r, "failed to update account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(updated))
}

// Delete removes an obligation without payments.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), account.ID); err != nil {
		respondError(w, r, "failed to delete account", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Totals aggregates obligations by category for a due date range.
func (h *AccountHandler) Totals(w http.ResponseWriter, r *http.Request) {
	from, err := dateQuery(r, "from")
	if err != nil {
		respondError(w, r, "invalid range", err)
		return
	}
	to, err := dateQuery(r, "to")
	if err != nil {
		respondError(w, r, "invalid range", err)
		return
	}
	if from == nil || to == nil {
		writeError(w, http.StatusBadRequest, "invalid range", "from and to are required")
		return
	}

	totals, err := h.accounts.TotalsByCategory(r.Context(), h.kind, *from, *to)
	if err != nil {
		respondError(w, r, "failed to compute totals", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TotalsFromDomain(totals))
}

// load fetches the path account and hides obligations of the other kind.
func (h *AccountHandler) load(w http.ResponseWriter, r *http.Request) (*domain.BillingAccount, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err == nil && account.Kind != h.kind {
		err = domain.ErrAccountNotFound
	}
	if err != nil {
		respondError(w, r, "failed to get account", err)
		return nil, false
	}
	return account, true
}
