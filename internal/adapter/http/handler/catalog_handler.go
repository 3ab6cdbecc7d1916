package handler

import (
	"context"
	"net/http"

	"github.com/iho/gymledger/internal/adapter/http/dto"
	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// CatalogService defines the behavior needed by CatalogHandler.
type CatalogService interface {
	CreatePlan(ctx context.Context, input usecase.CreatePlanInput) (*domain.Plan, error)
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)
	ListPlans(ctx context.Context, limit, offset int) ([]*domain.Plan, error)
	SetPlanActive(ctx context.Context, id string, active bool) (*domain.Plan, error)

	CreateDiscount(ctx context.Context, input usecase.CreateDiscountInput) (*domain.Discount, error)
	GetDiscount(ctx context.Context, id string) (*domain.Discount, error)
	ListDiscounts(ctx context.Context, limit, offset int) ([]*domain.Discount, error)
	SetDiscountActive(ctx context.Context, id string, active bool) (*domain.Discount, error)

	CreateStudent(ctx context.Context, input usecase.CreateStudentInput) (*domain.Student, error)
	GetStudent(ctx context.Context, id string) (*domain.Student, error)
	ListStudents(ctx context.Context, limit, offset int) ([]*domain.Student, error)

	CreateEmployee(ctx context.Context, input usecase.CreateEmployeeInput) (*domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	ListEmployees(ctx context.Context, limit, offset int) ([]*domain.Employee, error)

	CreateClass(ctx context.Context, input usecase.CreateClassInput) (*domain.Class, error)
	GetClass(ctx context.Context, id string) (*domain.Class, error)
	ListClasses(ctx context.Context, limit, offset int) ([]*domain.Class, error)
}

// CatalogHandler handles plans, discounts, students, employees and classes.
type CatalogHandler struct {
	catalog CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// create decodes a request, runs fn and writes 201 with the converted result.
func create[Req any, E any, Resp any](
	w http.ResponseWriter,
	r *http.Request,
	failure string,
	fn func(context.Context, *Req) (E, error),
	conv func(E) Resp,
) {
	var req Req
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := fn(r.Context(), &req)
	if err != nil {
		respondError(w, r, failure, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv(out))
}

func get[E any, Resp any](
	w http.ResponseWriter,
	r *http.Request,
	failure string,
	fn func(context.Context, string) (E, error),
	conv func(E) Resp,
) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := fn(r.Context(), id)
	if err != nil {
		respondError(w, r, failure, err)
		return
	}
	writeJSON(w, http.StatusOK, conv(out))
}

func list[E any, Resp any](
	w http.ResponseWriter,
	r *http.Request,
	failure string,
	fn func(context.Context, int, int) ([]E, error),
	conv func(E) Resp,
) {
	limit, offset := pagination(r)
	items, err := fn(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, failure, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewList(items, conv, limit, offset))
}

func setActive[E any, Resp any](
	w http.ResponseWriter,
	r *http.Request,
	failure string,
	fn func(context.Context, string, bool) (E, error),
	conv func(E) Resp,
) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := fn(r.Context(), id, *req.Active)
	if err != nil {
		respondError(w, r, failure, err)
		return
	}
	writeJSON(w, http.StatusOK, conv(out))
}

func (h *CatalogHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	create(w, r, "failed to create plan", func(ctx context.Context, req *dto.CreatePlanRequest) (*domain.Plan, error) {
		return h.catalog.CreatePlan(ctx, req.ToUseCaseInput())
	}, dto.PlanFromDomain)
}

func (h *CatalogHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	get(w, r, "failed to get plan", h.catalog.GetPlan, dto.PlanFromDomain)
}

func (h *CatalogHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	list(w, r, "failed to list plans", h.catalog.ListPlans, dto.PlanFromDomain)
}

func (h *CatalogHandler) SetPlanActive(w http.ResponseWriter, r *http.Request) {
	setActive(w, r, "failed to update plan", h.catalog.SetPlanActive, dto.PlanFromDomain)
}

func (h *CatalogHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	create(w, r, "failed to create discount", func(ctx context.Context, req *dto.CreateDiscountRequest) (*domain.Discount, error) {
		return h.catalog.CreateDiscount(ctx, req.ToUseCaseInput())
	}, dto.DiscountFromDomain)
}

func (h *CatalogHandler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	get(w, r, "failed to get discount", h.catalog.GetDiscount, dto.DiscountFromDomain)
}

func (h *CatalogHandler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	list(w, r, "failed to list discounts", h.catalog.ListDiscounts, dto.DiscountFromDomain)
}

func (h *CatalogHandler) SetDiscountActive(w http.ResponseWriter, r *http.Request) {
	setActive(w, r, "failed to update discount", h.catalog.SetDiscountActive, dto.DiscountFromDomain)
}

func (h *CatalogHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	create(w, r, "failed to create student", func(ctx context.Context, req *dto.CreateStudentRequest) (*domain.Student, error) {
		return h.catalog.CreateStudent(ctx, req.ToUseCaseInput())
	}, dto.StudentFromDomain)
}

func (h *CatalogHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	get(w, r, "failed to get student", h.catalog.GetStudent, dto.StudentFromDomain)
}

func (h *CatalogHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	list(w, r, "failed to list students", h.catalog.ListStudents, dto.StudentFromDomain)
}

func (h *CatalogHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	create(w, r, "failed to create employee", func(ctx context.Context, req *dto.CreateEmployeeRequest) (*domain.Employee, error) {
		return h.catalog.CreateEmployee(ctx, req.ToUseCaseInput())
	}, dto.EmployeeFromDomain)
}

func (h *CatalogHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	get(w, r, "failed to get employee", h.catalog.GetEmployee, dto.EmployeeFromDomain)
}

func (h *CatalogHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list(w, r, "failed to list employees", h.catalog.ListEmployees, dto.EmployeeFromDomain)
}

func (h *CatalogHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	create(w, r, "failed to create class", func(ctx context.Context, req *dto.CreateClassRequest) (*domain.Class, error) {
		return h.catalog.CreateClass(ctx, req.ToUseCaseInput())
	}, dto.ClassFromDomain)
}

func (h *CatalogHandler) GetClass(w http.ResponseWriter, r *http.Request) {
	get(w, r, "failed to get class", h.catalog.GetClass, dto.ClassFromDomain)
}

func (h *CatalogHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	list(w, r, "failed to list classes", h.catalog.ListClasses, dto.ClassFromDomain)
}
