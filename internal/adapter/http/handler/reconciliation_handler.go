package handler

import (
	"context"
	"net/http"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/usecase"
)

// AccountsReconciler checks the amount identities of every obligation.
type AccountsReconciler interface {
	ReconcileAccounts(ctx context.Context) (*usecase.AccountsReconciliation, error)
}

// ReconciliationHandler exposes tenant-wide reconciliation reports.
type ReconciliationHandler struct {
	reconciler AccountsReconciler
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciler AccountsReconciler) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// Accounts lists obligations whose remaining amount disagrees with final minus paid.
func (h *ReconciliationHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.ReconcileAccounts(r.Context())
	if err != nil {
		respondError(w, r, "failed to reconcile accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsReconciliationFromUseCase(report))
}
