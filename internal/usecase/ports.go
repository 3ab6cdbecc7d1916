package usecase

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

import (
	"context"
	"time"

	"github.com/iho/gymledger/internal/domain"
)

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock is the source of time for every ledger operation.
type Clock interface {
	Now() time.Time
	// Today is the current calendar date in the business location, as 00:00 UTC.
	Today() time.Time
}

// SequenceAllocator hands out the next value of a numbering series atomically.
type SequenceAllocator interface {
	Next(ctx context.Context, tx Transaction, series domain.Series) (int64, error)
}

// Retrier re-runs an operation on transient store failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock returns a clock for loc, defaulting to UTC.
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{Location: loc}
}

func (c SystemClock) Now() time.Time {
	return time.Now().In(c.Location)
}

func (c SystemClock) Today() time.Time {
	return domain.DateOf(c.Now())
}

// runWithRetry retries op when a retrier is configured.
func runWithRetry(ctx context.Context, r Retrier, op func() error) error {
	if r == nil {
		return op()
	}
	return r.Retry(ctx, op)
}
