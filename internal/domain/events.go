package domain

import "time"

// Event types
const (
	EventTypeRegisterOpened    = "register.opened"
	EventTypeRegisterClosed    = "register.closed"
	EventTypePaymentRegistered = "payment.registered"
	EventTypeAccountCreated    = "account.created"
	EventTypeAccountCancelled  = "account.cancelled"
	EventTypeEnrollmentCreated = "enrollment.created"
)

// Aggregate types
const (
	AggregateTypeRegister   = "cash_register"
	AggregateTypeAccount    = "billing_account"
	AggregateTypeEnrollment = "enrollment"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	TenantID      string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// RegisterEvent payload for register.opened and register.closed
type RegisterEvent struct {
	RegisterID string `json:"register_id"`
	Number     string `json:"number"`
	Balance    string `json:"balance"`
	Variance   string `json:"variance,omitempty"`
	Actor      string `json:"actor"`
}

// PaymentRegisteredEvent payload
type PaymentRegisteredEvent struct {
	AccountID  string `json:"account_id"`
	Number     string `json:"number"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Method     string `json:"method"`
	Remaining  string `json:"remaining"`
	Status     string `json:"status"`
	RegisterID string `json:"register_id"`
	MovementID string `json:"movement_id"`
}

// AccountEvent payload for account.created and account.cancelled
type AccountEvent struct {
	AccountID    string `json:"account_id"`
	Number       string `json:"number"`
	Kind         string `json:"kind"`
	FinalAmount  string `json:"final_amount"`
	DueDate      string `json:"due_date"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// EnrollmentCreatedEvent payload
type EnrollmentCreatedEvent struct {
	EnrollmentID string `json:"enrollment_id"`
	Code         string `json:"code"`
	StudentID    string `json:"student_id"`
	PlanID       string `json:"plan_id"`
	FinalPrice   string `json:"final_price"`
}
