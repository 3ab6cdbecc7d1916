package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds every write transaction, including time
	// spent waiting on register and account row locks.
	DefaultTransactionTimeout = 10 * time.Second

	// installmentLimit caps installment plans for payables and enrollments
	installmentLimit = 120
)
