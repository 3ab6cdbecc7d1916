package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// OpenRegisterRequest opens a cash register session.
type OpenRegisterRequest struct {
	OpeningFloat *decimal.Decimal `json:"opening_float" validate:"required"`
	OpenedBy     string           `json:"opened_by"     validate:"max=120"`
	Notes        string           `json:"notes"         validate:"max=1000"`
}

// ToUseCaseInput converts to use case input. actor fills a missing OpenedBy.
func (r *OpenRegisterRequest) ToUseCaseInput(actor string) usecase.OpenRegisterInput {
	openedBy := r.OpenedBy
	if openedBy == "" {
		openedBy = actor
	}
	return usecase.OpenRegisterInput{
		OpeningFloat: *r.OpeningFloat,
		OpenedBy:     openedBy,
		Notes:        r.Notes,
	}
}

// MovementRequest records a manual movement.
type MovementRequest struct {
	Direction     string           `json:"direction"      validate:"required,oneof=IN OUT"`
	Amount        *decimal.Decimal `json:"amount"         validate:"required"`
	Description   string           `json:"description"    validate:"required,max=255"`
	PaymentMethod string           `json:"payment_method" validate:"max=40"`
	Category      string           `json:"category"       validate:"max=40"`
}

func (r *MovementRequest) ToUseCaseInput() usecase.MovementInput {
	return usecase.MovementInput{
		Direction:     domain.Direction(r.Direction),
		Amount:        *r.Amount,
		Description:   r.Description,
		PaymentMethod: r.PaymentMethod,
		Category:      r.Category,
	}
}

// CashOperationRequest is a withdrawal (sangria) or a replenishment (suprimento).
type CashOperationRequest struct {
	Amount          *decimal.Decimal `json:"amount"           validate:"required"`
	Description     string           `json:"description"      validate:"required,max=255"`
	ResponsibleUser string           `json:"responsible_user" validate:"max=120"`
}

func (r *CashOperationRequest) ToUseCaseInput(actor string) usecase.CashOperationInput {
	responsible := r.ResponsibleUser
	if responsible == "" {
		responsible = actor
	}
	return usecase.CashOperationInput{
		Amount:          *r.Amount,
		Description:     r.Description,
		ResponsibleUser: responsible,
	}
}

// CloseRegisterRequest closes a session. A missing count closes at the expected balance.
type CloseRegisterRequest struct {
	ClosingCount *decimal.Decimal `json:"closing_count"`
	ClosedBy     string           `json:"closed_by" validate:"max=120"`
	Notes        string           `json:"notes"     validate:"max=1000"`
}

func (r *CloseRegisterRequest) ToUseCaseInput(actor string) usecase.CloseRegisterInput {
	closedBy := r.ClosedBy
	if closedBy == "" {
		closedBy = actor
	}
	return usecase.CloseRegisterInput{
		ClosingCount: r.ClosingCount,
		ClosedBy:     closedBy,
		Notes:        r.Notes,
	}
}

// CreateAccountRequest creates a receivable or a payable; the kind comes from the route.
type CreateAccountRequest struct {
	Category         string           `json:"category"          validate:"max=40"`
	Description      string           `json:"description"       validate:"max=255"`
	StudentID        *string          `json:"student_id"`
	PlanID           *string          `json:"plan_id"`
	DiscountID       *string          `json:"discount_id"`
	EmployeeID       *string          `json:"employee_id"`
	SupplierID       *string          `json:"supplier_id"`
	SupplierName     string           `json:"supplier_name"     validate:"max=160"`
	SupplierDocument string           `json:"supplier_document" validate:"max=40"`
	Document         string           `json:"document"          validate:"max=60"`
	OriginalAmount   *decimal.Decimal `json:"original_amount"`
	DiscountAmount   decimal.Decimal  `json:"discount_amount"`
	DueDate          *Date            `json:"due_date"          validate:"required"`
	Notes            string           `json:"notes"             validate:"max=1000"`
}

func (r *CreateAccountRequest) ToUseCaseInput(kind domain.AccountKind) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Kind:             kind,
		Category:         r.Category,
		Description:      r.Description,
		StudentID:        r.StudentID,
		PlanID:           r.PlanID,
		DiscountID:       r.DiscountID,
		EmployeeID:       r.EmployeeID,
		SupplierID:       r.SupplierID,
		SupplierName:     r.SupplierName,
		SupplierDocument: r.SupplierDocument,
		Document:         r.Document,
		OriginalAmount:   r.OriginalAmount,
		DiscountAmount:   r.DiscountAmount,
		DueDate:          r.DueDate.value(),
		Notes:            r.Notes,
	}
}

// InstallmentsRequest splits one payable into monthly installments.
type InstallmentsRequest struct {
	Category          string           `json:"category"           validate:"required,max=40"`
	Description       string           `json:"description"        validate:"required,max=255"`
	EmployeeID        *string          `json:"employee_id"`
	SupplierID        *string          `json:"supplier_id"`
	SupplierName      string           `json:"supplier_name"      validate:"max=160"`
	SupplierDocument  string           `json:"supplier_document"  validate:"max=40"`
	Document          string           `json:"document"           validate:"max=60"`
	Notes             string           `json:"notes"              validate:"max=1000"`
	TotalInstallments int              `json:"total_installments" validate:"required,min=2,max=120"`
	TotalAmount       *decimal.Decimal `json:"total_amount"       validate:"required"`
	FirstDueDate      *Date            `json:"first_due_date"     validate:"required"`
}

func (r *InstallmentsRequest) ToUseCaseInput() usecase.InstallmentInput {
	return usecase.InstallmentInput{
		Base: usecase.CreateAccountInput{
			Kind:             domain.KindPayable,
			Category:         r.Category,
			Description:      r.Description,
			EmployeeID:       r.EmployeeID,
			SupplierID:       r.SupplierID,
			SupplierName:     r.SupplierName,
			SupplierDocument: r.SupplierDocument,
			Document:         r.Document,
			Notes:            r.Notes,
		},
		TotalInstallments: r.TotalInstallments,
		TotalAmount:       *r.TotalAmount,
		FirstDueDate:      r.FirstDueDate.value(),
	}
}

// PaymentRequest registers a full or partial payment.
type PaymentRequest struct {
	Amount      *decimal.Decimal `json:"amount"       validate:"required"`
	Method      string           `json:"method"       validate:"required"`
	PaymentDate *Date            `json:"payment_date"`
	Interest    decimal.Decimal  `json:"interest"`
	Penalty     decimal.Decimal  `json:"penalty"`
}

func (r *PaymentRequest) ToUseCaseInput() usecase.PaymentInput {
	return usecase.PaymentInput{
		Amount:      *r.Amount,
		Method:      domain.PaymentMethod(r.Method),
		PaymentDate: r.PaymentDate.timePtr(),
		Interest:    r.Interest,
		Penalty:     r.Penalty,
	}
}

// CancelRequest cancels an obligation.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// UpdateAccountRequest patches a PENDING or OVERDUE obligation.
type UpdateAccountRequest struct {
	Description      *string          `json:"description"       validate:"omitempty,max=255"`
	Category         *string          `json:"category"          validate:"omitempty,max=40"`
	OriginalAmount   *decimal.Decimal `json:"original_amount"`
	DiscountAmount   *decimal.Decimal `json:"discount_amount"`
	DueDate          *Date            `json:"due_date"`
	SupplierName     *string          `json:"supplier_name"     validate:"omitempty,max=160"`
	SupplierDocument *string          `json:"supplier_document" validate:"omitempty,max=40"`
	Document         *string          `json:"document"          validate:"omitempty,max=60"`
	Notes            *string          `json:"notes"             validate:"omitempty,max=1000"`
}

func (r *UpdateAccountRequest) ToPatch() domain.AccountPatch {
	return domain.AccountPatch{
		Description:      r.Description,
		Category:         r.Category,
		OriginalAmount:   r.OriginalAmount,
		DiscountAmount:   r.DiscountAmount,
		DueDate:          r.DueDate.timePtr(),
		SupplierName:     r.SupplierName,
		SupplierDocument: r.SupplierDocument,
		Document:         r.Document,
		Notes:            r.Notes,
	}
}

// CreateEnrollmentRequest enrolls a student in a plan.
type CreateEnrollmentRequest struct {
	StudentID     string  `json:"student_id"     validate:"required"`
	PlanID        string  `json:"plan_id"        validate:"required"`
	StartDate     *Date   `json:"start_date"     validate:"required"`
	ClassID       *string `json:"class_id"`
	DiscountID    *string `json:"discount_id"`
	DueDay        *int    `json:"due_day"        validate:"omitempty,min=1,max=31"`
	PaymentMethod string  `json:"payment_method" validate:"max=40"`
	Installments  int     `json:"installments"   validate:"omitempty,min=1,max=12"`
	Notes         string  `json:"notes"          validate:"max=1000"`
}

func (r *CreateEnrollmentRequest) ToUseCaseInput() usecase.CreateEnrollmentInput {
	return usecase.CreateEnrollmentInput{
		StudentID:     r.StudentID,
		PlanID:        r.PlanID,
		StartDate:     r.StartDate.value(),
		ClassID:       r.ClassID,
		DiscountID:    r.DiscountID,
		DueDay:        r.DueDay,
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		Installments:  r.Installments,
		Notes:         r.Notes,
	}
}

// UpdateEnrollmentRequest patches an enrollment. The clear flags drop the discount or class.
type UpdateEnrollmentRequest struct {
	PlanID        *string `json:"plan_id"`
	DiscountID    *string `json:"discount_id"`
	ClearDiscount bool    `json:"clear_discount"`
	ClassID       *string `json:"class_id"`
	ClearClass    bool    `json:"clear_class"`
	StartDate     *Date   `json:"start_date"`
	DueDay        *int    `json:"due_day"        validate:"omitempty,min=1,max=31"`
	PaymentMethod *string `json:"payment_method"`
	Installments  *int    `json:"installments"   validate:"omitempty,min=1,max=12"`
	Notes         *string `json:"notes"          validate:"omitempty,max=1000"`
}

func (r *UpdateEnrollmentRequest) ToPatch() domain.EnrollmentPatch {
	patch := domain.EnrollmentPatch{
		PlanID:        r.PlanID,
		DiscountID:    r.DiscountID,
		ClearDiscount: r.ClearDiscount,
		ClassID:       r.ClassID,
		ClearClass:    r.ClearClass,
		StartDate:     r.StartDate.timePtr(),
		DueDay:        r.DueDay,
		Installments:  r.Installments,
		Notes:         r.Notes,
	}
	if r.PaymentMethod != nil {
		m := domain.PaymentMethod(*r.PaymentMethod)
		patch.PaymentMethod = &m
	}
	return patch
}

// InactivateRequest inactivates an enrollment.
type InactivateRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CreatePlanRequest creates a plan.
type CreatePlanRequest struct {
	Name        string           `json:"name"        validate:"required,max=120"`
	Periodicity string           `json:"periodicity" validate:"required"`
	ChargeType  string           `json:"charge_type" validate:"omitempty,oneof=RECURRING ONE_TIME"`
	Price       *decimal.Decimal `json:"price"       validate:"required"`
	MonthCount  *int             `json:"month_count"`
	DayCount    *int             `json:"day_count"`
}

func (r *CreatePlanRequest) ToUseCaseInput() usecase.CreatePlanInput {
	return usecase.CreatePlanInput{
		Name:        r.Name,
		Periodicity: domain.Periodicity(r.Periodicity),
		ChargeType:  domain.ChargeType(r.ChargeType),
		Price:       *r.Price,
		MonthCount:  r.MonthCount,
		DayCount:    r.DayCount,
	}
}

// CreateDiscountRequest creates a discount.
type CreateDiscountRequest struct {
	Name  string           `json:"name"  validate:"required,max=120"`
	Type  string           `json:"type"  validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value *decimal.Decimal `json:"value" validate:"required"`
}

func (r *CreateDiscountRequest) ToUseCaseInput() usecase.CreateDiscountInput {
	return usecase.CreateDiscountInput{
		Name:  r.Name,
		Type:  domain.DiscountType(r.Type),
		Value: *r.Value,
	}
}

// SetActiveRequest toggles a plan or discount.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// CreateStudentRequest creates a student.
type CreateStudentRequest struct {
	Name     string `json:"name"     validate:"required,max=160"`
	Document string `json:"document" validate:"max=40"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Phone    string `json:"phone"    validate:"max=40"`
}

func (r *CreateStudentRequest) ToUseCaseInput() usecase.CreateStudentInput {
	return usecase.CreateStudentInput{Name: r.Name, Document: r.Document, Email: r.Email, Phone: r.Phone}
}

// CreateEmployeeRequest creates an employee.
type CreateEmployeeRequest struct {
	Name     string `json:"name"     validate:"required,max=160"`
	Document string `json:"document" validate:"max=40"`
	Role     string `json:"role"     validate:"max=60"`
}

func (r *CreateEmployeeRequest) ToUseCaseInput() usecase.CreateEmployeeInput {
	return usecase.CreateEmployeeInput{Name: r.Name, Document: r.Document, Role: r.Role}
}

// CreateClassRequest creates a class.
type CreateClassRequest struct {
	Name     string `json:"name"     validate:"required,max=120"`
	Schedule string `json:"schedule" validate:"max=120"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

func (r *CreateClassRequest) ToUseCaseInput() usecase.CreateClassInput {
	return usecase.CreateClassInput{Name: r.Name, Schedule: r.Schedule, Capacity: r.Capacity}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest creates a user in the caller's tenant.
type CreateUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"max=160"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,oneof=admin manager staff"`
}

func (r *CreateUserRequest) ToUseCaseInput() usecase.CreateUserInput {
	return usecase.CreateUserInput{
		Email:    r.Email,
		Name:     r.Name,
		Password: r.Password,
		Role:     domain.Role(r.Role),
	}
}

// UpdateUserRequest patches a user.
type UpdateUserRequest struct {
	Name     *string `json:"name"     validate:"omitempty,max=160"`
	Role     *string `json:"role"     validate:"omitempty,oneof=admin manager staff"`
	Active   *bool   `json:"active"`
	Password *string `json:"password"`
}

func (r *UpdateUserRequest) ToUseCaseInput(id string) usecase.UpdateUserInput {
	in := usecase.UpdateUserInput{
		ID:       id,
		Name:     r.Name,
		Active:   r.Active,
		Password: r.Password,
	}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		in.Role = &role
	}
	return in
}
