// Package memory implements every repository on in-process maps.
//
// Transactions are serialized: Begin acquires a store-wide slot that is held
// until Commit or Rollback, so rows read through a transaction are implicitly
// locked. Writes apply immediately and record an undo step; Rollback replays
// the undo log. Reads outside a transaction never block on an open one.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// ErrTxDone is returned when committing a finished transaction.
var ErrTxDone = errors.New("memory: transaction already finished")

type Store struct {
	slot chan struct{}
	mu   sync.RWMutex

	tenants map[string]struct{}

	registers map[string]*domain.CashRegister
	movements map[string][]*domain.Movement

	accounts    map[string]*domain.BillingAccount
	enrollments map[string]*domain.Enrollment

	plans     map[string]*domain.Plan
	discounts map[string]*domain.Discount
	students  map[string]*domain.Student
	employees map[string]*domain.Employee
	classes   map[string]*domain.Class
	users     map[string]*domain.User

	outbox map[string]*domain.OutboxEvent
	audit  []*domain.AuditLog

	sequences map[string]int64
}

func New() *Store {
	return &Store{
		slot:        make(chan struct{}, 1),
		tenants:     make(map[string]struct{}),
		registers:   make(map[string]*domain.CashRegister),
		movements:   make(map[string][]*domain.Movement),
		accounts:    make(map[string]*domain.BillingAccount),
		enrollments: make(map[string]*domain.Enrollment),
		plans:       make(map[string]*domain.Plan),
		discounts:   make(map[string]*domain.Discount),
		students:    make(map[string]*domain.Student),
		employees:   make(map[string]*domain.Employee),
		classes:     make(map[string]*domain.Class),
		users:       make(map[string]*domain.User),
		outbox:      make(map[string]*domain.OutboxEvent),
		sequences:   make(map[string]int64),
	}
}

// Tx is a memory transaction.
type Tx struct {
	store *Store
	undo  []func()
	done  bool
}

// Begin waits for the transaction slot or for ctx to end.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	select {
	case s.slot <- struct{}{}:
		return &Tx{store: s}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.undo = nil
	<-t.store.slot
	return nil
}

// Rollback undoes every write of the transaction. It is a no-op once finished.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	<-t.store.slot
	return nil
}

// write runs fn under the data lock and records the undo step it returns on tx.
// A nil tx applies the write without undo.
func (s *Store) write(tx usecase.Transaction, fn func() (func(), error)) error {
	s.mu.Lock()
	undo, err := fn()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if t, ok := tx.(*Tx); ok && t != nil && undo != nil {
		t.undo = append(t.undo, undo)
	}
	return nil
}

// AddTenant registers a tenant for background jobs.
func (s *Store) AddTenant(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenantID] = struct{}{}
}

// ListTenantIDs returns every tenant that owns data, sorted.
func (s *Store) ListTenantIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Next allocates the next number of series for the tenant in ctx.
func (s *Store) Next(ctx context.Context, tx usecase.Transaction, series domain.Series) (int64, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return 0, err
	}
	key := tenantID + "/" + string(series)

	var n int64
	err = s.write(tx, func() (func(), error) {
		prev := s.sequences[key]
		n = prev + 1
		s.sequences[key] = n
		return func() { s.sequences[key] = prev }, nil
	})
	return n, err
}

// touchTenant must be called with mu held.
func (s *Store) touchTenant(tenantID string) {
	s.tenants[tenantID] = struct{}{}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// put stores v under k and returns the step restoring the previous state.
func put[K comparable, V any](m map[K]V, k K, v V) func() {
	prev, existed := m[k]
	m[k] = v
	return func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	}
}

func remove[K comparable, V any](m map[K]V, k K) func() {
	prev, existed := m[k]
	if !existed {
		return nil
	}
	delete(m, k)
	return func() { m[k] = prev }
}
