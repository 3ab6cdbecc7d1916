package domain

import "time"

// Student is the counterparty of receivables.
type Student struct {
	ID        string
	TenantID  string
	Name      string
	Document  string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

// Employee is the counterparty of salary payables.
type Employee struct {
	ID        string
	TenantID  string
	Name      string
	Document  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// Class groups enrollments (a turma).
type Class struct {
	ID        string
	TenantID  string
	Name      string
	Schedule  string
	Capacity  int
	Active    bool
	CreatedAt time.Time
}
