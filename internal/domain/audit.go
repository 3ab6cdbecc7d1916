package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for the financial back office
type AuditLog struct {
	ID           string
	TenantID     string
	UserID       string // Who performed the action
	Action       string // What action (register.open, payment.register, etc.)
	ResourceType string // Type of resource (cash_register, billing_account, enrollment)
	ResourceID   string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionRegisterOpen     AuditAction = "register.open"
	AuditActionRegisterClose    AuditAction = "register.close"
	AuditActionMovementRecord   AuditAction = "movement.record"
	AuditActionMovementRemove   AuditAction = "movement.remove"
	AuditActionAccountCreate    AuditAction = "account.create"
	AuditActionAccountUpdate    AuditAction = "account.update"
	AuditActionAccountCancel    AuditAction = "account.cancel"
	AuditActionAccountDelete    AuditAction = "account.delete"
	AuditActionPaymentRegister  AuditAction = "payment.register"
	AuditActionEnrollmentCreate AuditAction = "enrollment.create"
	AuditActionEnrollmentUpdate AuditAction = "enrollment.update"
	AuditActionEnrollmentDelete AuditAction = "enrollment.delete"
	AuditActionUserLogin        AuditAction = "user.login"
)

// Audited resource types
const (
	ResourceCashRegister   = "cash_register"
	ResourceBillingAccount = "billing_account"
	ResourceEnrollment     = "enrollment"
	ResourceUser           = "user"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
