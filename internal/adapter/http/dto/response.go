package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewList builds a ListResponse by mapping every element with conv.
func NewList[S, T any](items []S, conv func(S) T, limit, offset int) ListResponse[T] {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = conv(it)
	}
	return ListResponse[T]{Items: out, Count: len(out), Limit: limit, Offset: offset}
}

// MovementResponse represents a register movement.
type MovementResponse struct {
	ID            string          `json:"id"`
	RegisterID    string          `json:"register_id"`
	Direction     string          `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Category      string          `json:"category,omitempty"`
	ReceivableID  *string         `json:"receivable_id,omitempty"`
	PayableID     *string         `json:"payable_id,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

func MovementFromDomain(m *domain.Movement) *MovementResponse {
	return &MovementResponse{
		ID:            m.ID,
		RegisterID:    m.RegisterID,
		Direction:     string(m.Direction),
		Amount:        m.Amount,
		Description:   m.Description,
		PaymentMethod: m.PaymentMethod,
		Category:      m.Category,
		ReceivableID:  m.ReceivableID,
		PayableID:     m.PayableID,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}

func movementsFromDomain(list []domain.Movement) []*MovementResponse {
	out := make([]*MovementResponse, len(list))
	for i := range list {
		out[i] = MovementFromDomain(&list[i])
	}
	return out
}

// RegisterResponse represents a cash register session.
type RegisterResponse struct {
	ID               string              `json:"id"`
	Number           string              `json:"number"`
	Status           string              `json:"status"`
	OpeningFloat     decimal.Decimal     `json:"opening_float"`
	TotalIn          decimal.Decimal     `json:"total_in"`
	TotalOut         decimal.Decimal     `json:"total_out"`
	AvailableBalance decimal.Decimal     `json:"available_balance"`
	ClosingCount     *decimal.Decimal    `json:"closing_count,omitempty"`
	Variance         *decimal.Decimal    `json:"variance,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	OpenedBy         string              `json:"opened_by"`
	ClosedBy         string              `json:"closed_by,omitempty"`
	OpenedAt         time.Time           `json:"opened_at"`
	ClosedAt         *time.Time          `json:"closed_at,omitempty"`
	Movements        []*MovementResponse `json:"movements,omitempty"`
}

func RegisterFromDomain(r *domain.CashRegister) *RegisterResponse {
	resp := &RegisterResponse{
		ID:               r.ID,
		Number:           r.Number,
		Status:           string(r.Status),
		OpeningFloat:     r.OpeningFloat,
		TotalIn:          r.TotalIn,
		TotalOut:         r.TotalOut,
		AvailableBalance: r.AvailableBalance(),
		ClosingCount:     r.ClosingCount,
		Variance:         r.Variance,
		Notes:            r.Notes,
		OpenedBy:         r.OpenedBy,
		ClosedBy:         r.ClosedBy,
		OpenedAt:         r.OpenedAt,
		ClosedAt:         r.ClosedAt,
	}
	if len(r.Movements) > 0 {
		resp.Movements = movementsFromDomain(r.Movements)
	}
	return resp
}

// MovementGroupResponse is one bucket of a register report.
type MovementGroupResponse struct {
	Key       string              `json:"key"`
	Total     decimal.Decimal     `json:"total"`
	Count     int                 `json:"count"`
	Movements []*MovementResponse `json:"movements"`
}

// ReportResponse is the register session report.
type ReportResponse struct {
	Register     *RegisterResponse        `json:"register"`
	Outflows     []*MovementGroupResponse `json:"outflows_by_category"`
	Inflows      []*MovementGroupResponse `json:"inflows_by_payment_method"`
	Opening      decimal.Decimal          `json:"opening"`
	TotalIn      decimal.Decimal          `json:"total_in"`
	TotalOut     decimal.Decimal          `json:"total_out"`
	Expected     decimal.Decimal          `json:"expected"`
	ClosingCount *decimal.Decimal         `json:"closing_count,omitempty"`
	Variance     *decimal.Decimal         `json:"variance,omitempty"`
	InCount      int                      `json:"in_count"`
	OutCount     int                      `json:"out_count"`
	TotalCount   int                      `json:"total_count"`
	Movements    []*MovementResponse      `json:"movements"`
}

func groupsFromDomain(groups []domain.MovementGroup) []*MovementGroupResponse {
	out := make([]*MovementGroupResponse, len(groups))
	for i, g := range groups {
		out[i] = &MovementGroupResponse{Key: g.Key, Total: g.Total, Count: g.Count, Movements: movementsFromDomain(g.Movements)}
	}
	return out
}

func ReportFromDomain(r *domain.RegisterReport) *ReportResponse {
	header := *r.Register
	header.Movements = nil
	return &ReportResponse{
		Register:     RegisterFromDomain(&header),
		Outflows:     groupsFromDomain(r.Outflows),
		Inflows:      groupsFromDomain(r.Inflows),
		Opening:      r.Opening,
		TotalIn:      r.TotalIn,
		TotalOut:     r.TotalOut,
		Expected:     r.Expected,
		ClosingCount: r.ClosingCount,
		Variance:     r.Variance,
		InCount:      r.InCount,
		OutCount:     r.OutCount,
		TotalCount:   r.InCount + r.OutCount,
		Movements:    movementsFromDomain(r.Movements),
	}
}

// AccountResponse represents a receivable or payable.
type AccountResponse struct {
	ID                string          `json:"id"`
	Kind              string          `json:"kind"`
	Number            string          `json:"number"`
	Category          string          `json:"category"`
	Description       string          `json:"description"`
	StudentID         *string         `json:"student_id,omitempty"`
	PlanID            *string         `json:"plan_id,omitempty"`
	DiscountID        *string         `json:"discount_id,omitempty"`
	EnrollmentID      *string         `json:"enrollment_id,omitempty"`
	PeriodKey         *string         `json:"period_key,omitempty"`
	EmployeeID        *string         `json:"employee_id,omitempty"`
	SupplierID        *string         `json:"supplier_id,omitempty"`
	SupplierName      string          `json:"supplier_name,omitempty"`
	SupplierDocument  string          `json:"supplier_document,omitempty"`
	Document          string          `json:"document,omitempty"`
	OriginalAmount    decimal.Decimal `json:"original_amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	InterestAmount    decimal.Decimal `json:"interest_amount"`
	PenaltyAmount     decimal.Decimal `json:"penalty_amount"`
	FinalAmount       decimal.Decimal `json:"final_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	DueDate           Date            `json:"due_date"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	Status            string          `json:"status"`
	Installment       *int            `json:"installment,omitempty"`
	TotalInstallments *int            `json:"total_installments,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func AccountFromDomain(a *domain.BillingAccount) *AccountResponse {
	return &AccountResponse{
		ID:                a.ID,
		Kind:              string(a.Kind),
		Number:            a.Number,
		Category:          a.Category,
		Description:       a.Description,
		StudentID:         a.StudentID,
		PlanID:            a.PlanID,
		DiscountID:        a.DiscountID,
		EnrollmentID:      a.EnrollmentID,
		PeriodKey:         a.PeriodKey,
		EmployeeID:        a.EmployeeID,
		SupplierID:        a.SupplierID,
		SupplierName:      a.SupplierName,
		SupplierDocument:  a.SupplierDocument,
		Document:          a.Document,
		OriginalAmount:    a.OriginalAmount,
		DiscountAmount:    a.DiscountAmount,
		InterestAmount:    a.InterestAmount,
		PenaltyAmount:     a.PenaltyAmount,
		FinalAmount:       a.FinalAmount,
		PaidAmount:        a.PaidAmount,
		RemainingAmount:   a.RemainingAmount,
		DueDate:           NewDate(a.DueDate),
		PaidAt:            a.PaidAt,
		PaymentMethod:     string(a.PaymentMethod),
		Status:            string(a.Status),
		Installment:       a.Installment,
		TotalInstallments: a.TotalInstallments,
		Notes:             a.Notes,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// PaymentResponse is the outcome of a payment registration.
type PaymentResponse struct {
	Account    *AccountResponse  `json:"account"`
	Movement   *MovementResponse `json:"movement,omitempty"`
	RegisterID string            `json:"register_id"`
}

func PaymentFromUseCase(r *usecase.PaymentResult) *PaymentResponse {
	resp := &PaymentResponse{Account: AccountFromDomain(r.Account), RegisterID: r.RegisterID}
	if r.Movement != nil {
		resp.Movement = MovementFromDomain(r.Movement)
	}
	return resp
}

// CategoryTotalResponse is one category row of a totals report.
type CategoryTotalResponse struct {
	Category  string          `json:"category"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Count     int             `json:"count"`
}

// TotalsResponse aggregates obligations by category.
type TotalsResponse struct {
	Categories []CategoryTotalResponse `json:"categories"`
	Total      decimal.Decimal         `json:"total"`
	Paid       decimal.Decimal         `json:"paid"`
	Remaining  decimal.Decimal         `json:"remaining"`
	Count      int                     `json:"count"`
}

func TotalsFromDomain(t *domain.CategoryTotals) *TotalsResponse {
	resp := &TotalsResponse{
		Categories: make([]CategoryTotalResponse, len(t.Categories)),
		Total:      t.Total,
		Paid:       t.Paid,
		Remaining:  t.Remaining,
		Count:      t.Count,
	}
	for i, c := range t.Categories {
		resp.Categories[i] = CategoryTotalResponse(c)
	}
	return resp
}

// EnrollmentResponse represents an enrollment.
type EnrollmentResponse struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	StudentID          string          `json:"student_id"`
	PlanID             string          `json:"plan_id"`
	ClassID            *string         `json:"class_id,omitempty"`
	DiscountID         *string         `json:"discount_id,omitempty"`
	StartDate          Date            `json:"start_date"`
	EndDate            Date            `json:"end_date"`
	DueDay             *int            `json:"due_day,omitempty"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	Status             string          `json:"status"`
	InactivationReason string          `json:"inactivation_reason,omitempty"`
	Installments       int             `json:"installments"`
	PaymentMethod      string          `json:"payment_method,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func EnrollmentFromDomain(e *domain.Enrollment) *EnrollmentResponse {
	return &EnrollmentResponse{
		ID:                 e.ID,
		Code:               e.Code,
		StudentID:          e.StudentID,
		PlanID:             e.PlanID,
		ClassID:            e.ClassID,
		DiscountID:         e.DiscountID,
		StartDate:          NewDate(e.StartDate),
		EndDate:            NewDate(e.EndDate),
		DueDay:             e.DueDay,
		OriginalPrice:      e.OriginalPrice,
		DiscountAmount:     e.DiscountAmount,
		FinalPrice:         e.FinalPrice,
		Status:             string(e.Status),
		InactivationReason: e.InactivationReason,
		Installments:       e.Installments,
		PaymentMethod:      string(e.PaymentMethod),
		Notes:              e.Notes,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// EnrollmentCreatedResponse carries the enrollment and its first charge.
type EnrollmentCreatedResponse struct {
	Enrollment      *EnrollmentResponse `json:"enrollment"`
	FirstReceivable *AccountResponse    `json:"first_receivable,omitempty"`
}

func EnrollmentCreatedFromUseCase(r *usecase.EnrollmentResult) *EnrollmentCreatedResponse {
	resp := &EnrollmentCreatedResponse{Enrollment: EnrollmentFromDomain(r.Enrollment)}
	if r.FirstReceivable != nil {
		resp.FirstReceivable = AccountFromDomain(r.FirstReceivable)
	}
	return resp
}

// PlanResponse represents a plan.
type PlanResponse struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Periodicity string          `json:"periodicity"`
	ChargeType  string          `json:"charge_type"`
	Price       decimal.Decimal `json:"price"`
	MonthCount  *int            `json:"month_count,omitempty"`
	DayCount    *int            `json:"day_count,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func PlanFromDomain(p *domain.Plan) *PlanResponse {
	return &PlanResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Periodicity: string(p.Periodicity),
		ChargeType:  string(p.ChargeType),
		Price:       p.Price,
		MonthCount:  p.MonthCount,
		DayCount:    p.DayCount,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
	}
}

// DiscountResponse represents a discount.
type DiscountResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

func DiscountFromDomain(d *domain.Discount) *DiscountResponse {
	return &DiscountResponse{ID: d.ID, Name: d.Name, Type: string(d.Type), Value: d.Value, Active: d.Active, CreatedAt: d.CreatedAt}
}

// StudentResponse represents a student.
type StudentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func StudentFromDomain(s *domain.Student) *StudentResponse {
	return &StudentResponse{ID: s.ID, Name: s.Name, Document: s.Document, Email: s.Email, Phone: s.Phone, Active: s.Active, CreatedAt: s.CreatedAt}
}

// EmployeeResponse represents an employee.
type EmployeeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document,omitempty"`
	Role      string    `json:"role,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func EmployeeFromDomain(e *domain.Employee) *EmployeeResponse {
	return &EmployeeResponse{ID: e.ID, Name: e.Name, Document: e.Document, Role: e.Role, Active: e.Active, CreatedAt: e.CreatedAt}
}

// ClassResponse represents a class.
type ClassResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule,omitempty"`
	Capacity  int       `json:"capacity"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func ClassFromDomain(c *domain.Class) *ClassResponse {
	return &ClassResponse{ID: c.ID, Name: c.Name, Schedule: c.Schedule, Capacity: c.Capacity, Active: c.Active, CreatedAt: c.CreatedAt}
}

// UserResponse represents user information
type UserResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{ID: u.ID, TenantID: u.TenantID, Email: u.Email, Name: u.Name, Role: string(u.Role), Active: u.Active, CreatedAt: u.CreatedAt}
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expires_in"`
	User      *UserResponse `json:"user"`
}

// RegisterReconciliationResponse reports a register's running totals against its movements.
type RegisterReconciliationResponse struct {
	RegisterID      string          `json:"register_id"`
	Number          string          `json:"number"`
	RecordedIn      decimal.Decimal `json:"recorded_in"`
	CalculatedIn    decimal.Decimal `json:"calculated_in"`
	RecordedOut     decimal.Decimal `json:"recorded_out"`
	CalculatedOut   decimal.Decimal `json:"calculated_out"`
	MovementCount   int             `json:"movement_count"`
	NegativeBalance bool            `json:"negative_balance"`
	IsReconciled    bool            `json:"is_reconciled"`
	CheckedAt       time.Time       `json:"checked_at"`
}

func RegisterReconciliationFromUseCase(r *usecase.RegisterReconciliation) *RegisterReconciliationResponse {
	resp := RegisterReconciliationResponse(*r)
	return &resp
}

// AccountDiscrepancyResponse is one obligation failing the amount identities.
type AccountDiscrepancyResponse struct {
	AccountID string          `json:"account_id"`
	Number    string          `json:"number"`
	Final     decimal.Decimal `json:"final"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Problem   string          `json:"problem"`
}

// AccountsReconciliationResponse reports obligations whose amounts disagree.
type AccountsReconciliationResponse struct {
	TotalAccounts int                          `json:"total_accounts"`
	Discrepancies []AccountDiscrepancyResponse `json:"discrepancies"`
	IsReconciled  bool                         `json:"is_reconciled"`
	CheckedAt     time.Time                    `json:"checked_at"`
}

func AccountsReconciliationFromUseCase(r *usecase.AccountsReconciliation) *AccountsReconciliationResponse {
	resp := &AccountsReconciliationResponse{
		TotalAccounts: r.TotalAccounts,
		Discrepancies: make([]AccountDiscrepancyResponse, len(r.Discrepancies)),
		IsReconciled:  r.IsReconciled,
		CheckedAt:     r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = AccountDiscrepancyResponse(d)
	}
	return resp
}
