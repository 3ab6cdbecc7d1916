package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// RegisterService defines the behavior needed by RegisterHandler.
type RegisterService interface {
	Open(ctx context.Context, input usecase.OpenRegisterInput) (*domain.CashRegister, error)
	RecordMovement(ctx context.Context, registerID string, input usecase.MovementInput) (*domain.Movement, error)
	RemoveMovement(ctx context.Context, registerID, movementID string) error
	Withdraw(ctx context.Context, registerID string, input usecase.CashOperationInput) (*domain.Movement, error)
	Replenish(ctx context.Context, registerID string, input usecase.CashOperationInput) (*domain.Movement, error)
	Close(ctx context.Context, registerID string, input usecase.CloseRegisterInput) (*domain.CashRegister, error)
	GetOpen(ctx context.Context) (*domain.CashRegister, error)
	Get(ctx context.Context, id string) (*domain.CashRegister, error)
	List(ctx context.Context, filter domain.RegisterFilter, limit, offset int) ([]*domain.CashRegister, error)
	Report(ctx context.Context, id string) (*domain.RegisterReport, error)
}

// RegisterReconciler reconciles one register against its movements.
type RegisterReconciler interface {
	ReconcileRegister(ctx context.Context, registerID string) (*usecase.RegisterReconciliation, error)
}

// RegisterHandler handles cash register HTTP requests.
type RegisterHandler struct {
	registers  RegisterService
	reconciler RegisterReconciler
}

// NewRegisterHandler creates a new RegisterHandler.
func NewRegisterHandler(registers RegisterService, reconciler RegisterReconciler) *RegisterHandler {
	return &RegisterHandler{registers: registers, reconciler: reconciler}
}

// Open opens a new register session.
func (h *RegisterHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenRegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.registers.Open(r.Context(), req.ToUseCaseInput(actorName(r)))
	if err != nil {
		respondError(w, r, "failed to open register", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RegisterFromDomain(reg))
}

// GetOpen returns the tenant's open session.
func (h *RegisterHandler) GetOpen(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registers.GetOpen(r.Context())
	if err != nil {
		respondError(w, r, "failed to get open register", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RegisterFromDomain(reg))
}

// Get retrieves a session by ID.
func (h *RegisterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	reg, err := h.registers.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, "failed to get register", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RegisterFromDomain(reg))
}

// List lists sessions, optionally filtered by status and opening date.
func (h *RegisterHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var filter domain.RegisterFilter
	if s := stringQuery(r, "status"); s != nil {
		status := domain.RegisterStatus(*s)
		filter.Status = &status
	}
	var err error
	if filter.From, err = dateQuery(r, "from"); err != nil {
		respondError(w, r, "invalid filter", err)
		return
	}
	if filter.To, err = dateQuery(r, "to"); err != nil {
		respondError(w, r, "invalid filter", err)
		return
	}
	if filter.To != nil {
		// inclusive of the whole day
		end := filter.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	registers, err := h.registers.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, r, "failed to list registers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewList(registers, dto.RegisterFromDomain, limit, offset))
}

// RecordMovement appends a manual movement.
func (h *RegisterHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.MovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.registers.RecordMovement(r.Context(), id, req.ToUseCaseInput())
	if err != nil {
		respondError(w, r, "failed to record movement", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MovementFromDomain(m))
}

// RemoveMovement deletes a movement and reverts its totals.
func (h *RegisterHandler) RemoveMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	movementID, ok := pathID(w, r, "movementID")
	if !ok {
		return
	}

	if err := h.registers.RemoveMovement(r.Context(), id, movementID); err != nil {
		respondError(w, r, "failed to remove movement", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Withdraw records a sangria.
func (h *RegisterHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.cashOperation(w, r, "failed to withdraw", h.registers.Withdraw)
}

// Replenish records a suprimento.
func (h *RegisterHandler) Replenish(w http.ResponseWriter, r *http.Request) {
	h.cashOperation(w, r, "failed to replenish", h.registers.Replenish)
}

func (h *RegisterHandler) cashOperation(
	w http.ResponseWriter,
	r *http.Request,
	failure string,
	op func(context.Context, string, usecase.CashOperationInput) (*domain.Movement, error),
) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.CashOperationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := op(r.Context(), id, req.ToUseCaseInput(actorName(r)))
	if err != nil {
		respondError(w, r, failure, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MovementFromDomain(m))
}

// Close closes a session with the counted cash.
func (h *RegisterHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.CloseRegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.registers.Close(r.Context(), id, req.ToUseCaseInput(actorName(r)))
	if err != nil {
		respondError(w, r, "failed to close register", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RegisterFromDomain(reg))
}

// Report returns the grouped session report.
func (h *RegisterHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	report, err := h.registers.Report(r.Context(), id)
	if err != nil {
		respondError(w, r, "failed to build report", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportFromDomain(report))
}

// Reconcile checks the session totals against its movements.
func (h *RegisterHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rec, err := h.reconciler.ReconcileRegister(r.Context(), id)
	if err != nil {
		respondError(w, r, "failed to reconcile register", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RegisterReconciliationFromUseCase(rec))
}
