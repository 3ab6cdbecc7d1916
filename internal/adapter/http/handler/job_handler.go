package handler

import (
	"context"
	"net/http"

	"github.com/iho/gymledger/internal/usecase"
)

// BillingRunner runs the recurring billing generator for the caller's tenant.
type BillingRunner interface {
	Run(ctx context.Context) (*usecase.GenerationResult, error)
}

// OverdueSweeper flips past-due obligations to OVERDUE for the caller's tenant.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// JobHandler exposes the scheduled jobs for manual triggering.
type JobHandler struct {
	billing BillingRunner
	sweeper OverdueSweeper
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(billing BillingRunner, sweeper OverdueSweeper) *JobHandler {
	return &JobHandler{billing: billing, sweeper: sweeper}
}

// RunBilling generates the receivables due for the current period.
func (h *JobHandler) RunBilling(w http.ResponseWriter, r *http.Request) {
	result, err := h.billing.Run(r.Context())
	if err != nil {
		respondError(w, r, "billing run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SweepOverdue marks every past-due PENDING obligation OVERDUE.
func (h *JobHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	updated, err := h.sweeper.SweepOverdue(r.Context())
	if err != nil {
		respondError(w, r, "overdue sweep failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
