package handler

import (
	"context"
	"net/http"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// EnrollmentService defines the behavior needed by EnrollmentHandler.
type EnrollmentService interface {
	Create(ctx context.Context, input usecase.CreateEnrollmentInput) (*usecase.EnrollmentResult, error)
	Update(ctx context.Context, id string, patch domain.EnrollmentPatch) (*domain.Enrollment, error)
	Inactivate(ctx context.Context, id, reason string) (*domain.Enrollment, error)
	Reactivate(ctx context.Context, id string) (*domain.Enrollment, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Enrollment, error)
	List(ctx context.Context, filter domain.EnrollmentFilter, limit, offset int) ([]*domain.Enrollment, error)
}

// EnrollmentHandler handles enrollment HTTP requests.
type EnrollmentHandler struct {
	enrollments EnrollmentService
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollments EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Create enrolls a student and issues the first receivable.
func (h *EnrollmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEnrollmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.enrollments.Create(r.Context(), req.ToUseCaseInput())
	if err != nil {
		respondError(w, r, "failed to create enrollment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EnrollmentCreatedFromUseCase(result))
}

func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.enrollments.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, "failed to get enrollment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnrollmentFromDomain(e))
}

func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	filter := domain.EnrollmentFilter{
		StudentID: stringQuery(r, "student_id"),
		PlanID:    stringQuery(r, "plan_id"),
	}
	if s := stringQuery(r, "status"); s != nil {
		status := domain.EnrollmentStatus(*s)
		filter.Status = &status
	}

	list, err := h.enrollments.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, r, "failed to list enrollments", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewList(list, dto.EnrollmentFromDomain, limit, offset))
}

func (h *EnrollmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.UpdateEnrollmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.enrollments.Update(r.Context(), id, req.ToPatch())
	if err != nil {
		respondError(w, r, "failed to update enrollment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnrollmentFromDomain(e))
}

func (h *EnrollmentHandler) Inactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.InactivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.enrollments.Inactivate(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, r, "failed to inactivate enrollment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnrollmentFromDomain(e))
}

func (h *EnrollmentHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.enrollments.Reactivate(r.Context(), id)
	if err != nil {
		respondError(w, r, "failed to reactivate enrollment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnrollmentFromDomain(e))
}

// Delete removes the enrollment together with its unpaid receivables.
func (h *EnrollmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.enrollments.Delete(r.Context(), id); err != nil {
		respondError(w, r, "failed to delete enrollment", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
