package usecase

import (
	"context"
	"time"

	"github.com/iho/gymledger/internal/domain"
)

// Every repository call is scoped by the tenant carried in ctx (see domain.WithTenant).
// Methods taking a Transaction participate in it; the rest read committed state.

// CashRegisterRepository defines data access for register sessions and their movements.
type CashRegisterRepository interface {
	Create(ctx context.Context, tx Transaction, register *domain.CashRegister) error
	// GetByID returns the session with its movements.
	GetByID(ctx context.Context, id string) (*domain.CashRegister, error)
	// GetOpen returns the OPEN session with its movements.
	GetOpen(ctx context.Context) (*domain.CashRegister, error)
	// GetByIDForUpdate and GetOpenForUpdate lock the session row and return it without movements.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.CashRegister, error)
	GetOpenForUpdate(ctx context.Context, tx Transaction) (*domain.CashRegister, error)
	Update(ctx context.Context, tx Transaction, register *domain.CashRegister) error
	AddMovement(ctx context.Context, tx Transaction, movement *domain.Movement) error
	GetMovement(ctx context.Context, tx Transaction, registerID, movementID string) (*domain.Movement, error)
	DeleteMovement(ctx context.Context, tx Transaction, registerID, movementID string) error
	List(ctx context.Context, filter domain.RegisterFilter, limit, offset int) ([]*domain.CashRegister, error)
}

// BillingAccountRepository defines data access for receivables and payables.
type BillingAccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.BillingAccount) error
	GetByID(ctx context.Context, id string) (*domain.BillingAccount, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.BillingAccount, error)
	Update(ctx context.Context, tx Transaction, account *domain.BillingAccount) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, filter domain.AccountFilter, limit, offset int) ([]*domain.BillingAccount, error)
	ListByEnrollment(ctx context.Context, tx Transaction, enrollmentID string) ([]*domain.BillingAccount, error)
	// FindByEnrollmentPeriod returns the non-cancelled receivable of an enrollment for a period key.
	FindByEnrollmentPeriod(ctx context.Context, enrollmentID, periodKey string) (*domain.BillingAccount, error)
	// MarkOverdue flips every PENDING account due before today to OVERDUE.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	TotalsByCategory(ctx context.Context, kind domain.AccountKind, from, to time.Time) ([]domain.CategoryTotal, error)
}

// EnrollmentRepository defines data access for enrollments.
type EnrollmentRepository interface {
	Create(ctx context.Context, tx Transaction, enrollment *domain.Enrollment) error
	GetByID(ctx context.Context, id string) (*domain.Enrollment, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Enrollment, error)
	Update(ctx context.Context, tx Transaction, enrollment *domain.Enrollment) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, filter domain.EnrollmentFilter, limit, offset int) ([]*domain.Enrollment, error)
	// ListBillable returns ACTIVE enrollments with a due day whose plan is RECURRING.
	ListBillable(ctx context.Context) ([]domain.BillableEnrollment, error)
}

// PlanRepository defines data access for plans.
type PlanRepository interface {
	Create(ctx context.Context, tx Transaction, plan *domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	List(ctx context.Context, limit, offset int) ([]*domain.Plan, error)
}

// DiscountRepository defines data access for discounts.
type DiscountRepository interface {
	Create(ctx context.Context, discount *domain.Discount) error
	GetByID(ctx context.Context, id string) (*domain.Discount, error)
	Update(ctx context.Context, discount *domain.Discount) error
	List(ctx context.Context, limit, offset int) ([]*domain.Discount, error)
}

// StudentRepository defines data access for students.
type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id string) (*domain.Student, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Student, error)
}

// EmployeeRepository defines data access for employees.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Employee, error)
}

// ClassRepository defines data access for classes.
type ClassRepository interface {
	Create(ctx context.Context, class *domain.Class) error
	GetByID(ctx context.Context, id string) (*domain.Class, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Class, error)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail is not tenant scoped: login happens before the tenant is known.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// TenantLister enumerates the companies background jobs iterate over.
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyPending is the value CheckAndSet stores when called without a response.
// It holds the key while the first request is still being served.
const IdempotencyPending = "processing"

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
